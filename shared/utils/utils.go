package utils

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/segmentio/ksuid"
	"golang.org/x/crypto/bcrypt"
)

// AccountNumberPrefix is prepended to the account sequence number.
const AccountNumberPrefix = "AVS"

// FirstAccountSequence is the sequence number of the first account opened.
const FirstAccountSequence = 1001

var accountNumberPattern = regexp.MustCompile(`^AVS[0-9]{4,}$`)

// GenerateID generates a unique ID with the given prefix, e.g. "acc-2Qd...".
func GenerateID(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, ksuid.New().String())
}

var (
	snowflakeOnce sync.Once
	snowflakeNode *snowflake.Node
	snowflakeErr  error
)

// NewTransactionID returns a time-ordered 64-bit id. The node comes from
// SNOWFLAKE_NODE and defaults to 1.
func NewTransactionID() (int64, error) {
	snowflakeOnce.Do(func() {
		nodeID := int64(1)
		if raw := os.Getenv("SNOWFLAKE_NODE"); raw != "" {
			if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil {
				nodeID = parsed
			}
		}
		snowflakeNode, snowflakeErr = snowflake.NewNode(nodeID)
	})
	if snowflakeErr != nil {
		return 0, fmt.Errorf("snowflake node: %w", snowflakeErr)
	}
	return snowflakeNode.Generate().Int64(), nil
}

// FormatAccountNumber renders a sequence number as an account number.
func FormatAccountNumber(seq int64) string {
	return fmt.Sprintf("%s%d", AccountNumberPrefix, seq)
}

// ValidateAccountNumber validates the account number format.
func ValidateAccountNumber(accountNumber string) bool {
	return accountNumberPattern.MatchString(accountNumber)
}

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPassword checks if a password matches a hash
func CheckPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
