// Package normalize turns loosely structured v3 fields into v4 columns. Every parser here falls back
// to documented defaults instead of failing: partial data beats a dropped record.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Bank-account defaults used when a field cannot be extracted.
const (
	DefaultBankName      = "Unknown"
	DefaultAccountHolder = "Tinta Academy"
	DefaultAccountType   = "Cuenta"
	DefaultAccountNumber = "Ver detalles"
)

// Currencies
const (
	USD = "USD"
	UYU = "UYU"
)

// BankAccountFields is the parsed form of a v3 BankData row.
type BankAccountFields struct {
	BankName      string
	AccountType   string
	AccountHolder string
	AccountNumber string
	Currency      string
}

// label sets, compared after foldLabel
var (
	holderLabels = map[string]bool{
		"titular":        true,
		"nombre":         true,
		"a nombre de":    true,
		"beneficiario":   true,
		"razon social":   true,
		"account holder": true,
		"holder":         true,
		"name":           true,
		"beneficiary":    true,
	}

	numberLabels = map[string]bool{
		"cuenta":           true,
		"numero de cuenta": true,
		"nro de cuenta":    true,
		"n de cuenta":      true,
		"no de cuenta":     true,
		"cuenta nro":       true,
		"cuenta numero":    true,
		"numero":           true,
		"nro":              true,
		"account number":   true,
		"account no":       true,
		"account":          true,
	}

	currencyTokens = map[string]bool{
		"usd": true, "uyu": true, "u$s": true, "us$": true, "$u": true, "uy$": true,
		"pesos": true, "dolares": true, "dollars": true,
	}
)

// ParseBankAccount extracts account fields from a v3 bank name ("BROU - Caja de Ahorro USD") and its
// free-text info blob. It never fails; see the Default* constants.
func ParseBankAccount(name, info string) BankAccountFields {
	f := BankAccountFields{
		BankName:      DefaultBankName,
		AccountType:   DefaultAccountType,
		AccountHolder: DefaultAccountHolder,
		AccountNumber: DefaultAccountNumber,
		Currency:      BankCurrency(name),
	}

	head, tail, hasDash := strings.Cut(name, "-")
	if bank := strings.TrimSpace(head); bank != "" {
		f.BankName = bank
	}
	if hasDash {
		if accType := stripCurrencyTokens(tail); accType != "" {
			f.AccountType = accType
		}
	}

	var holderSet, numberSet bool
	for _, line := range strings.Split(strings.ReplaceAll(info, "\r\n", "\n"), "\n") {
		rawLabel, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		label := foldLabel(rawLabel)
		switch {
		case !holderSet && holderLabels[label]:
			f.AccountHolder, holderSet = value, true
		case !numberSet && numberLabels[label]:
			f.AccountNumber, numberSet = value, true
		}
	}
	return f
}

// BankCurrency is UYU when the bank name mentions UYU or pesos, USD otherwise.
func BankCurrency(name string) string {
	folded := strings.ToUpper(fold(name))
	if strings.Contains(folded, "UYU") || strings.Contains(folded, "PESOS") {
		return UYU
	}
	return USD
}

// stripCurrencyTokens drops trailing currency words: "Caja de Ahorro (USD)" -> "Caja de Ahorro".
func stripCurrencyTokens(s string) string {
	words := strings.Fields(s)
	for len(words) > 0 {
		last := strings.Trim(fold(words[len(words)-1]), "()[]")
		if !currencyTokens[last] {
			break
		}
		words = words[:len(words)-1]
	}
	return strings.Join(words, " ")
}

// fold lowercases and strips diacritics.
func fold(s string) string {
	decomposed := norm.NFD.String(strings.ToLower(s))
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// foldLabel makes "Nro. de Cuenta", "N° de cuenta" and "numero  de cuenta" comparable.
func foldLabel(s string) string {
	s = strings.NewReplacer(".", " ", "°", " ", "º", " ", "#", " ").Replace(fold(s))
	return strings.Join(strings.Fields(s), " ")
}
