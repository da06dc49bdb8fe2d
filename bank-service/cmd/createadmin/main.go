// Command createadmin provisions an admin login in the bank database.
//
//	createadmin -username root -name "Branch Admin"
//
// The password is read from ADMIN_PASSWORD so it stays out of shell history.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/Vashist1110/AVS-Bank/bank-service/internal/command"
	"github.com/Vashist1110/AVS-Bank/bank-service/internal/repository"
	"github.com/Vashist1110/AVS-Bank/shared/config"
	"github.com/Vashist1110/AVS-Bank/shared/cqrs"
	"github.com/Vashist1110/AVS-Bank/shared/database"
	"github.com/Vashist1110/AVS-Bank/shared/logging"
	"go.uber.org/zap"
)

func main() {
	username := flag.String("username", "", "admin login name")
	name := flag.String("name", "", "display name")
	flag.Parse()

	cfg, err := config.Load(".")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	if cfg.StoreDriver != config.StoreDriverPostgres {
		logger.Fatal("createadmin needs STORE_DRIVER=postgres", zap.String("store", cfg.StoreDriver))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.Connect(ctx, database.Config{DSN: cfg.DatabaseURL, MaxConns: 1})
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	store := repository.NewPostgresStore(db)
	if err := store.EnsureSchema(ctx); err != nil {
		logger.Fatal("failed to ensure schema", zap.Error(err))
	}

	admin, err := command.NewAdminCommandService(store).CreateAdmin(ctx, cqrs.CreateAdminCommand{
		Username: *username,
		Name:     *name,
		Password: os.Getenv("ADMIN_PASSWORD"),
	})
	if err != nil {
		logger.Fatal("failed to create admin", zap.Error(err))
	}
	logger.Info("admin created", zap.String("admin_id", admin.ID), zap.String("username", admin.Username))
}
