package policy

import "strings"

// ExpectedColumns is the full raw schema of the rating file. The loader
// warns (but does not fail) when any are absent after normalization.
var ExpectedColumns = []string{
	"UnderwrittenCoverID", "PolicyID", "TransactionMonth", "IsVATRegistered", "Citizenship",
	"LegalType", "Title", "Language", "Bank", "AccountType", "MaritalStatus", "Gender",
	"Country", "Province", "PostalCode", "MainCrestaZone", "SubCrestaZone", "ItemType",
	"Mmcode", "VehicleType", "RegistrationYear", "Make", "Model", "Cylinders",
	"Cubiccapacity", "Kilowatts", "Bodytype", "NumberOfDoors", "VehicleIntroDate",
	"CustomValueEstimate", "AlarmImmobiliser", "TrackingDevice", "CapitalOutstanding",
	"NewVehicle", "WrittenOff", "Rebuilt", "Converted", "CrossBorder",
	"NumberOfVehiclesInFleet", "SumInsured", "TermFrequency", "CalculatedPremiumPerTerm",
	"ExcessSelected", "CoverCategory", "CoverType", "CoverGroup", "Section", "Product",
	"StatutoryClass", "StatutoryRiskType", "TotalPremium", "TotalClaims",
}

// NATokens are cell values treated as missing on load.
var NATokens = map[string]struct{}{
	"N/A":     {},
	"NA":      {},
	"NULL":    {},
	"":        {},
	"missing": {},
	"Unknown": {},
}

// NormalizeColumn standardizes a raw header: trim, lowercase, spaces to
// underscores.
func NormalizeColumn(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}

// IsMissing reports whether a raw cell value counts as missing.
func IsMissing(value string) bool {
	_, ok := NATokens[strings.TrimSpace(value)]
	return ok
}
