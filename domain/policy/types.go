// Package policy defines the insurance policy record schema shared by the
// loader, cleaning rules, EDA aggregates and the hypothesis battery.
package policy

// Gender labels after imputation. Anything else is treated as missing.
const (
	GenderMale   = "Male"
	GenderFemale = "Female"
)

// Term frequency labels on the raw data and their per-year multipliers.
const (
	TermMonthly = "Monthly"
	TermAnnual  = "Annual"
)

// TermFrequencyMap maps term frequency labels to terms per year.
var TermFrequencyMap = map[string]int{
	TermMonthly: 12,
	TermAnnual:  1,
}

// VATRate is the South African VAT rate in force for the 2014-2015
// transaction window. VAT-registered policies carry premiums inclusive
// of VAT, so imputation divides by (1 + VATRate).
const VATRate = 0.14

// TitleGenderMap infers gender from salutation when gender is missing.
// "Dr" is deliberately absent: it is ambiguous and those rows are dropped.
var TitleGenderMap = map[string]string{
	"Mr":   GenderMale,
	"Mrs":  GenderFemale,
	"Ms":   GenderFemale,
	"Miss": GenderFemale,
}

// Column names after normalization (trimmed, lowercased, spaces to
// underscores). Only the columns the pipeline addresses directly get
// constants; everything else is carried through by name.
const (
	ColUnderwrittenCoverID      = "underwrittencoverid"
	ColPolicyID                 = "policyid"
	ColTransactionMonth         = "transactionmonth"
	ColIsVATRegistered          = "isvatregistered"
	ColTitle                    = "title"
	ColBank                     = "bank"
	ColAccountType              = "accounttype"
	ColMaritalStatus            = "maritalstatus"
	ColGender                   = "gender"
	ColProvince                 = "province"
	ColPostalCode               = "postalcode"
	ColVehicleType              = "vehicletype"
	ColRegistrationYear         = "registrationyear"
	ColMake                     = "make"
	ColModel                    = "model"
	ColCylinders                = "cylinders"
	ColCubicCapacity            = "cubiccapacity"
	ColKilowatts                = "kilowatts"
	ColBodyType                 = "bodytype"
	ColNumberOfDoors            = "numberofdoors"
	ColVehicleIntroDate         = "vehicleintrodate"
	ColCustomValueEstimate      = "customvalueestimate"
	ColCapitalOutstanding       = "capitaloutstanding"
	ColNewVehicle               = "newvehicle"
	ColWrittenOff               = "writtenoff"
	ColRebuilt                  = "rebuilt"
	ColConverted                = "converted"
	ColCrossBorder              = "crossborder"
	ColNumberOfVehiclesInFleet  = "numberofvehiclesinfleet"
	ColSumInsured               = "suminsured"
	ColTermFrequency            = "termfrequency"
	ColCalculatedPremiumPerTerm = "calculatedpremiumperterm"
	ColMmcode                   = "mmcode"
	ColTotalPremium             = "totalpremium"
	ColTotalClaims              = "totalclaims"
	ColTermFrequencyMapped      = "termfrequency_mapped"
)

// RequiredVehicleColumns are high-impact columns a row must have for the
// battery and any downstream modeling; rows missing any of them are dropped.
var RequiredVehicleColumns = []string{
	ColMaritalStatus,
	ColMmcode, ColVehicleType, ColMake, ColModel,
	ColCylinders, ColCubicCapacity, ColKilowatts,
	ColBodyType, ColNumberOfDoors, ColVehicleIntroDate,
}

// SparseColumns are dropped wholesale during cleaning; their missingness
// rates are too high to impute defensibly.
var SparseColumns = []string{
	ColCustomValueEstimate,
	ColWrittenOff,
	ColRebuilt,
	ColConverted,
	ColCrossBorder,
	ColNumberOfVehiclesInFleet,
}

// NumericSummaryColumns are the columns the EDA summary describes when present.
var NumericSummaryColumns = []string{
	ColTotalPremium, ColTotalClaims, ColCylinders, ColCubicCapacity,
	ColKilowatts, ColNumberOfDoors, ColCustomValueEstimate,
	ColCapitalOutstanding, ColSumInsured, ColCalculatedPremiumPerTerm,
	ColNumberOfVehiclesInFleet,
}
