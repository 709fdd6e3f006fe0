package domain

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// AccountSpec describes one account of the branch catalog.
type AccountSpec struct {
	BranchID       string
	Type           AccountType
	Currency       Currency
	OpeningBalance decimal.Decimal
}

// Catalog is the configured set of branch accounts.
type Catalog struct {
	Accounts []AccountSpec
}

// ParseAccountSpec parses "branch:type:currency[:opening]".
func ParseAccountSpec(s string) (AccountSpec, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 3 || len(parts) > 4 {
		return AccountSpec{}, fmt.Errorf("account spec %q: want branch:type:currency[:opening]", s)
	}

	spec := AccountSpec{
		BranchID:       strings.TrimSpace(parts[0]),
		Type:           AccountType(strings.TrimSpace(parts[1])),
		OpeningBalance: decimal.Zero,
	}
	if spec.BranchID == "" {
		return AccountSpec{}, fmt.Errorf("account spec %q: %w", s, ErrInvalidBranch)
	}
	if err := spec.Type.Validate(); err != nil {
		return AccountSpec{}, fmt.Errorf("account spec %q: %w", s, err)
	}

	currency, err := ParseCurrency(parts[2])
	if err != nil {
		return AccountSpec{}, fmt.Errorf("account spec %q: %w", s, err)
	}
	spec.Currency = currency

	if len(parts) == 4 {
		opening, err := decimal.NewFromString(strings.TrimSpace(parts[3]))
		if err != nil {
			return AccountSpec{}, fmt.Errorf("account spec %q: opening balance: %w", s, err)
		}
		spec.OpeningBalance = opening
	}

	return spec, nil
}

// ParseCatalog parses a list of account specs, rejecting duplicate keys.
func ParseCatalog(specs []string) (Catalog, error) {
	var catalog Catalog
	seen := make(map[string]bool, len(specs))
	for _, raw := range specs {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		spec, err := ParseAccountSpec(raw)
		if err != nil {
			return Catalog{}, err
		}
		id := AccountID(spec.BranchID, spec.Type)
		if seen[id] {
			return Catalog{}, fmt.Errorf("%w: %s listed twice", ErrAccountAlreadyExists, id)
		}
		seen[id] = true
		catalog.Accounts = append(catalog.Accounts, spec)
	}
	return catalog, nil
}

// Branches returns the distinct branch IDs in the catalog, sorted.
func (c Catalog) Branches() []string {
	seen := make(map[string]bool)
	var branches []string
	for _, a := range c.Accounts {
		if !seen[a.BranchID] {
			seen[a.BranchID] = true
			branches = append(branches, a.BranchID)
		}
	}
	sort.Strings(branches)
	return branches
}
