// Package testkit generates seeded synthetic insurance policy data with
// planted cohort effects, for package tests and pipeline demos.
package testkit

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"time"

	"claimscope/adapters/flatfile"
	"claimscope/domain/policy"
)

// GeneratorConfig configures the synthetic policy generator.
type GeneratorConfig struct {
	PolicyCount        int     `json:"policy_count"`
	PostcodeCount      int     `json:"postcode_count"`
	BaseClaimRate      float64 `json:"base_claim_rate"`
	ZeroPremiumRate    float64 `json:"zero_premium_rate"`
	MissingGenderRate  float64 `json:"missing_gender_rate"`
	MissingVehicleRate float64 `json:"missing_vehicle_rate"`
	Seed               int64   `json:"seed"`
	StartDate          time.Time
	EndDate            time.Time
}

// DefaultGeneratorConfig returns sensible defaults mirroring the shape of
// the 2014-2015 rating file.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		PolicyCount:        5000,
		PostcodeCount:      80,
		BaseClaimRate:      0.12,
		ZeroPremiumRate:    0.05,
		MissingGenderRate:  0.10,
		MissingVehicleRate: 0.03,
		Seed:               42,
		StartDate:          time.Date(2014, 2, 1, 0, 0, 0, 0, time.UTC),
		EndDate:            time.Date(2015, 8, 31, 0, 0, 0, 0, time.UTC),
	}
}

// provinceEffects plants the claim-rate differences the battery should
// find. Gauteng runs hotter than KwaZulu-Natal.
var provinceEffects = map[string]float64{
	"Gauteng":       0.06,
	"KwaZulu-Natal": 0.00,
	"Western Cape":  0.02,
	"Eastern Cape":  -0.02,
	"Free State":    -0.03,
}

var provinces = []string{"Gauteng", "KwaZulu-Natal", "Western Cape", "Eastern Cape", "Free State"}

var vehicleTypes = []string{"Passenger Vehicle", "Light Commercial", "Medium Commercial", "Bus"}

var makes = []string{"TOYOTA", "VOLKSWAGEN", "FORD", "NISSAN", "BMW"}

var banks = []string{"First National Bank", "Standard Bank", "ABSA", "Nedbank"}

var maritalStatuses = []string{"Married", "Single", "Widowed"}

// PolicyGenerator produces a normalized policy table with planted effects.
type PolicyGenerator struct {
	cfg GeneratorConfig
	rng *rand.Rand
}

// NewPolicyGenerator creates a seeded generator.
func NewPolicyGenerator(cfg GeneratorConfig) *PolicyGenerator {
	return &PolicyGenerator{cfg: cfg, rng: rand.New(rand.NewSource(cfg.Seed))}
}

// generatorColumns is the schema of the generated table, already in
// normalized form.
var generatorColumns = []string{
	policy.ColUnderwrittenCoverID, policy.ColPolicyID, policy.ColTransactionMonth,
	policy.ColIsVATRegistered, policy.ColTitle, policy.ColBank, policy.ColAccountType,
	policy.ColMaritalStatus, policy.ColGender, policy.ColProvince, policy.ColPostalCode,
	policy.ColVehicleType, policy.ColRegistrationYear, policy.ColMake, policy.ColModel,
	policy.ColCylinders, policy.ColCubicCapacity, policy.ColKilowatts, policy.ColBodyType,
	policy.ColNumberOfDoors, policy.ColVehicleIntroDate, policy.ColMmcode,
	policy.ColCustomValueEstimate, policy.ColCapitalOutstanding, policy.ColNewVehicle,
	policy.ColNumberOfVehiclesInFleet, policy.ColSumInsured, policy.ColTermFrequency,
	policy.ColCalculatedPremiumPerTerm, policy.ColTotalPremium, policy.ColTotalClaims,
}

// GenerateTable produces the full synthetic dataset.
func (g *PolicyGenerator) GenerateTable() *flatfile.Table {
	rows := make([][]string, 0, g.cfg.PolicyCount)
	for i := 0; i < g.cfg.PolicyCount; i++ {
		rows = append(rows, g.generatePolicy(i))
	}
	return flatfile.NewTable(append([]string(nil), generatorColumns...), rows)
}

func (g *PolicyGenerator) generatePolicy(i int) []string {
	row := make(map[string]string, len(generatorColumns))

	province := provinces[g.rng.Intn(len(provinces))]
	postcode := g.postcode(i)
	gender, title := g.genderAndTitle()
	month := g.randomMonth()
	vatRegistered := g.rng.Float64() < 0.3
	termFrequency := policy.TermMonthly
	if g.rng.Float64() < 0.2 {
		termFrequency = policy.TermAnnual
	}

	perTerm := 80 + g.rng.Float64()*400
	if termFrequency == policy.TermAnnual {
		perTerm *= 10
	}
	premium := perTerm
	if vatRegistered {
		premium = perTerm / (1 + policy.VATRate)
	}
	if g.rng.Float64() < g.cfg.ZeroPremiumRate {
		premium = 0 // exercised by the premium imputation rule
	}

	claims := 0.0
	if g.rng.Float64() < g.claimRate(province, postcode, gender) {
		claims = math.Exp(7 + g.rng.NormFloat64()*1.2)
	}

	row[policy.ColUnderwrittenCoverID] = fmt.Sprintf("cover_%06d", i+1)
	row[policy.ColPolicyID] = fmt.Sprintf("policy_%05d", i/2+1)
	row[policy.ColTransactionMonth] = month.Format("2006-01-02 15:04:05")
	row[policy.ColIsVATRegistered] = strconv.FormatBool(vatRegistered)
	row[policy.ColTitle] = title
	row[policy.ColBank] = g.maybe(0.95, banks[g.rng.Intn(len(banks))])
	row[policy.ColAccountType] = g.maybe(0.9, "Current account")
	row[policy.ColMaritalStatus] = maritalStatuses[g.rng.Intn(len(maritalStatuses))]
	row[policy.ColGender] = gender
	row[policy.ColProvince] = province
	row[policy.ColPostalCode] = postcode
	row[policy.ColVehicleType] = vehicleTypes[g.rng.Intn(len(vehicleTypes))]
	row[policy.ColRegistrationYear] = strconv.Itoa(2000 + g.rng.Intn(15))
	row[policy.ColMake] = makes[g.rng.Intn(len(makes))]
	row[policy.ColModel] = fmt.Sprintf("MODEL %d", g.rng.Intn(20))
	row[policy.ColCylinders] = strconv.Itoa(4 + 2*g.rng.Intn(2))
	row[policy.ColCubicCapacity] = strconv.Itoa(1200 + g.rng.Intn(2400))
	row[policy.ColKilowatts] = strconv.Itoa(55 + g.rng.Intn(150))
	row[policy.ColBodyType] = "S/D"
	row[policy.ColNumberOfDoors] = strconv.Itoa(2 + 2*g.rng.Intn(2))
	row[policy.ColVehicleIntroDate] = fmt.Sprintf("%d-06", 2000+g.rng.Intn(15))
	row[policy.ColMmcode] = strconv.Itoa(10000000 + g.rng.Intn(89999999))
	row[policy.ColCustomValueEstimate] = g.maybe(0.1, strconv.Itoa(50000+g.rng.Intn(400000)))
	row[policy.ColCapitalOutstanding] = g.maybe(0.85, strconv.Itoa(g.rng.Intn(200000)))
	row[policy.ColNewVehicle] = g.maybe(0.97, strconv.FormatBool(g.rng.Float64() < 0.1))
	row[policy.ColNumberOfVehiclesInFleet] = "" // sparse in the real file too
	row[policy.ColSumInsured] = strconv.Itoa(5000 + g.rng.Intn(500000))
	row[policy.ColTermFrequency] = termFrequency
	row[policy.ColCalculatedPremiumPerTerm] = strconv.FormatFloat(perTerm, 'f', 2, 64)
	row[policy.ColTotalPremium] = strconv.FormatFloat(premium, 'f', 2, 64)
	row[policy.ColTotalClaims] = strconv.FormatFloat(claims, 'f', 2, 64)

	if g.rng.Float64() < g.cfg.MissingVehicleRate {
		row[policy.ColMmcode] = "" // exercised by the vehicle-info drop rule
	}

	out := make([]string, len(generatorColumns))
	for j, col := range generatorColumns {
		out[j] = row[col]
	}
	return out
}

// postcode assigns codes so that low-numbered codes run riskier, giving
// the battery a real tier split to find.
func (g *PolicyGenerator) postcode(i int) string {
	code := g.rng.Intn(g.cfg.PostcodeCount)
	return strconv.Itoa(1000 + code)
}

func (g *PolicyGenerator) postcodeEffect(postcode string) float64 {
	code, err := strconv.Atoi(postcode)
	if err != nil {
		return 0
	}
	// Linear gradient: the lowest code adds ~0.08, the highest ~0.
	frac := float64(code-1000) / float64(g.cfg.PostcodeCount)
	return 0.08 * (1 - frac)
}

func (g *PolicyGenerator) claimRate(province, postcode, gender string) float64 {
	rate := g.cfg.BaseClaimRate + provinceEffects[province] + g.postcodeEffect(postcode)
	if gender == policy.GenderMale {
		rate += 0.02
	}
	return math.Max(0.01, math.Min(0.9, rate))
}

// genderAndTitle produces correlated gender/title pairs, withholding the
// gender label at the configured rate so the title imputation rule has
// work to do.
func (g *PolicyGenerator) genderAndTitle() (string, string) {
	male := g.rng.Float64() < 0.6
	gender, title := policy.GenderFemale, "Mrs"
	if male {
		gender, title = policy.GenderMale, "Mr"
	} else if g.rng.Float64() < 0.3 {
		title = "Ms"
	}
	if g.rng.Float64() < 0.02 {
		title = "Dr"
	}
	if g.rng.Float64() < g.cfg.MissingGenderRate {
		gender = ""
	}
	return gender, title
}

func (g *PolicyGenerator) randomMonth() time.Time {
	span := g.cfg.EndDate.Sub(g.cfg.StartDate)
	t := g.cfg.StartDate.Add(time.Duration(g.rng.Int63n(int64(span))))
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// maybe returns the value with probability p, otherwise a missing cell.
func (g *PolicyGenerator) maybe(p float64, value string) string {
	if g.rng.Float64() < p {
		return value
	}
	return ""
}
