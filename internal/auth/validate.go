package auth

import (
	"fmt"
	"regexp"

	"papertrader/internal/trading"
)

var (
	loginRe    = regexp.MustCompile(`^[A-Za-z0-9_]{3,50}$`)
	emailRe    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	currencyRe = regexp.MustCompile(`^[A-Za-z]{3}$`)
	symbolRe   = regexp.MustCompile(`^[A-Za-z0-9.]{1,20}$`)
)

func ValidateLogin(login string) error {
	if !loginRe.MatchString(login) {
		return fmt.Errorf("login must be 3-50 characters of letters, digits or underscore: %w", trading.ErrValidation)
	}
	return nil
}

func ValidatePassword(password string) error {
	if len(password) < 4 {
		return fmt.Errorf("password must be at least 4 characters: %w", trading.ErrValidation)
	}
	return nil
}

func ValidateEmail(email string) error {
	if email == "" || len(email) > 255 || !emailRe.MatchString(email) {
		return fmt.Errorf("invalid email address: %w", trading.ErrValidation)
	}
	return nil
}

func ValidateCurrency(currency string) error {
	if !currencyRe.MatchString(currency) {
		return fmt.Errorf("currency must be a 3-letter code: %w", trading.ErrValidation)
	}
	return nil
}

func ValidateSymbol(symbol string) error {
	if !symbolRe.MatchString(symbol) {
		return fmt.Errorf("symbol must be 1-20 characters of letters, digits or dot: %w", trading.ErrValidation)
	}
	return nil
}
