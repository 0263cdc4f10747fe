package usecase

import (
	"math"
	"strconv"
	"strings"

	domainErrors "github.com/LayerTwo-Labs/fast-withdraw-server-node/internal/domain/errors"
)

// MaxSatoshis is the total bitcoin supply in satoshis. No withdrawal can exceed it.
const MaxSatoshis = 21_000_000 * 100_000_000

// ParseAmount converts a textual amount into a number without judging its range.
func ParseAmount(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, domainErrors.Validation(domainErrors.ReasonNotANumber, "withdrawal_amount must be a number")
	}
	return v, nil
}

// ValidateAmount checks that amount is a finite, positive, whole number of satoshis
// no larger than MaxSatoshis, so it converts to int64 exactly.
func ValidateAmount(amount float64) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return domainErrors.Validation(domainErrors.ReasonNotANumber, "withdrawal_amount must be a number")
	}
	if amount <= 0 {
		return domainErrors.Validation(domainErrors.ReasonNonPositiveAmount, "withdrawal_amount must be positive")
	}
	if amount > MaxSatoshis {
		return domainErrors.Validation(domainErrors.ReasonAmountOutOfRange, "withdrawal_amount must not exceed %d satoshis", int64(MaxSatoshis))
	}
	if amount != math.Trunc(amount) {
		return domainErrors.Validation(domainErrors.ReasonFractionalAmount, "withdrawal_amount must be a whole number of satoshis")
	}
	return nil
}

// RequireFields reports every blank {name, value} pair in one MissingField error.
func RequireFields(fields [][2]string) error {
	if missing := missingFields(fields); len(missing) > 0 {
		return domainErrors.Validation(domainErrors.ReasonMissingField, "Missing required fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

func missingFields(fields [][2]string) []string {
	var missing []string
	for _, f := range fields {
		if strings.TrimSpace(f[1]) == "" {
			missing = append(missing, f[0])
		}
	}
	return missing
}
