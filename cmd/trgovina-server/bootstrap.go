package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/trgovina/internal/model"
	"github.com/erazemk/trgovina/internal/store"
)

// ensurePlatformAdmin creates the first platform admin when the database
// has none. It returns the generated password, or "" when an admin exists.
func ensurePlatformAdmin(ctx context.Context, db *sql.DB, username string) (string, error) {
	n, err := store.CountPlatformAdmins(ctx, db)
	if err != nil {
		return "", err
	}
	if n > 0 {
		return "", nil
	}

	password, err := generatePassword(16)
	if err != nil {
		return "", fmt.Errorf("generating password: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}

	_, err = store.CreateUser(ctx, db, &model.User{
		Username:        username,
		FullName:        "Platform administrator",
		PasswordHash:    string(hash),
		IsPlatformAdmin: true,
	})
	if err != nil {
		return "", fmt.Errorf("creating platform admin: %w", err)
	}
	return password, nil
}

func printAdmin(username, password string) {
	fmt.Println("Platform admin account created:")
	fmt.Printf("  Username: %s\n", username)
	fmt.Printf("  Password: %s\n", password)
	fmt.Println()
	fmt.Println("Save this password, it cannot be recovered.")
	fmt.Println("Change it after logging in with: trgovina passwd")
	fmt.Println()
}

// generatePassword creates a random password of the given length.
func generatePassword(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%&*"
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}
