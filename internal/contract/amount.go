package contract

import (
	"math/big"
	"strings"

	tmerr "github.com/mrz1836/testament/pkg/errors"
)

// EtherDecimals is the number of wei decimal places in one ether.
const EtherDecimals = 18

//nolint:gochecknoglobals // Read-only bound
var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// ParseAmount parses the amount-or-id field of a will. Plain mode accepts a
// non-negative base-10 integer. Ether mode accepts a decimal ether value
// with up to 18 places and returns wei.
func ParseAmount(s string, ether bool) (*big.Int, error) {
	s = strings.TrimSpace(s)
	var (
		v   *big.Int
		err error
	)
	if ether {
		v, err = ParseDecimalAmount(s, EtherDecimals)
	} else {
		v, err = parseInteger(s)
	}
	if err != nil {
		return nil, err
	}
	if v.Cmp(maxUint256) > 0 {
		return nil, tmerr.WithDetails(tmerr.ErrInvalidAmount, map[string]string{"amount": s, "reason": "exceeds uint256"})
	}
	return v, nil
}

func parseInteger(s string) (*big.Int, error) {
	if s == "" || strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return nil, invalidAmount(s)
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, invalidAmount(s)
	}
	return v, nil
}

// ParseDecimalAmount parses a decimal string to an integer scaled by
// decimalPlaces. "1.5" with 18 places returns 1500000000000000000. More
// fractional digits than decimalPlaces is an error.
func ParseDecimalAmount(amount string, decimalPlaces int) (*big.Int, error) {
	if amount == "" || strings.HasPrefix(amount, "-") || strings.HasPrefix(amount, "+") {
		return nil, invalidAmount(amount)
	}

	intPart, decPart, _ := strings.Cut(amount, ".")
	if strings.Contains(decPart, ".") || (intPart == "" && decPart == "") {
		return nil, invalidAmount(amount)
	}
	if intPart == "" {
		intPart = "0"
	}

	intVal, ok := new(big.Int).SetString(intPart, 10)
	if !ok {
		return nil, invalidAmount(amount)
	}

	multiplier := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimalPlaces)), nil)
	result := new(big.Int).Mul(intVal, multiplier)

	if decPart == "" {
		return result, nil
	}
	for _, c := range decPart {
		if c < '0' || c > '9' {
			return nil, invalidAmount(amount)
		}
	}
	if len(decPart) > decimalPlaces {
		return nil, tmerr.WithDetails(tmerr.ErrInvalidAmount, map[string]string{
			"amount": amount,
			"reason": "too many decimal places",
		})
	}
	decPart += strings.Repeat("0", decimalPlaces-len(decPart))

	decVal, ok := new(big.Int).SetString(decPart, 10)
	if !ok {
		return nil, invalidAmount(amount)
	}
	return result.Add(result, decVal), nil
}

// FormatDecimalAmount renders amount scaled down by decimalPlaces, trimming
// trailing fractional zeros. 1500000000000000000 with 18 places is "1.5".
func FormatDecimalAmount(amount *big.Int, decimalPlaces int) string {
	if amount == nil {
		return "0"
	}

	str := amount.String()
	if decimalPlaces <= 0 {
		return str
	}
	if len(str) <= decimalPlaces {
		str = strings.Repeat("0", decimalPlaces-len(str)+1) + str
	}

	pos := len(str) - decimalPlaces
	frac := strings.TrimRight(str[pos:], "0")
	if frac == "" {
		return str[:pos]
	}
	return str[:pos] + "." + frac
}

func invalidAmount(amount string) error {
	return tmerr.WithDetails(tmerr.ErrInvalidAmount, map[string]string{"amount": amount})
}
