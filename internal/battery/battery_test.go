package battery

import (
	"testing"

	"claimscope/domain/policy"
	"claimscope/domain/stats"
	"claimscope/internal/config"
	"claimscope/internal/testkit"
)

func batteryConfig() config.BatteryConfig {
	return config.BatteryConfig{
		Alpha:            0.05,
		MinCellCount:     5,
		MinClaimsPerCode: 10,
		RiskTierSize:     10,
	}
}

func generatedBattery(t *testing.T) (*Battery, *Outcome) {
	t.Helper()
	genCfg := testkit.DefaultGeneratorConfig()
	genCfg.PolicyCount = 6000
	genCfg.PostcodeCount = 40
	genCfg.MissingGenderRate = 0

	table := testkit.NewPolicyGenerator(genCfg).GenerateTable()
	b, err := New(table, batteryConfig(), nil)
	if err != nil {
		t.Fatalf("failed to build battery: %v", err)
	}
	return b, b.Run()
}

func TestBatteryRun(t *testing.T) {
	_, outcome := generatedBattery(t)

	if len(outcome.Results) == 0 {
		t.Fatal("battery produced no results")
	}

	t.Run("province stage present", func(t *testing.T) {
		found := false
		for _, r := range outcome.Results {
			if r.GroupColumn == policy.ColProvince && r.Test == stats.TestChiSquared {
				found = true
				if r.GroupA != ProvinceA || r.GroupB != ProvinceB {
					t.Errorf("province cohorts = %s vs %s", r.GroupA, r.GroupB)
				}
				if r.SampleSizeA == 0 || r.SampleSizeB == 0 {
					t.Error("province sample sizes not recorded")
				}
			}
		}
		if !found {
			t.Error("no chi-squared result for province")
		}
	})

	t.Run("postcode tiers present", func(t *testing.T) {
		found := false
		for _, r := range outcome.Results {
			if r.GroupColumn == "postcode_group" {
				found = true
				if r.GroupA != HighRiskGroup || r.GroupB != LowRiskGroup {
					t.Errorf("tier cohorts = %s vs %s", r.GroupA, r.GroupB)
				}
			}
		}
		if !found {
			t.Error("no results for postcode risk tiers")
		}
	})

	t.Run("gender stage present", func(t *testing.T) {
		found := false
		for _, r := range outcome.Results {
			if r.GroupColumn == policy.ColGender {
				found = true
			}
		}
		if !found {
			t.Error("no results for gender")
		}
	})

	t.Run("fdr applied to every result", func(t *testing.T) {
		for _, r := range outcome.Results {
			if r.FDRMethod != "BH" {
				t.Errorf("%s: FDR method = %q", r.Label(), r.FDRMethod)
			}
			if r.TotalComparisons != len(outcome.Results) {
				t.Errorf("%s: total comparisons = %d, want %d", r.Label(), r.TotalComparisons, len(outcome.Results))
			}
			if r.QValue < r.PValue || r.QValue > 1 {
				t.Errorf("%s: q = %v outside [p, 1] with p = %v", r.Label(), r.QValue, r.PValue)
			}
		}
	})

	t.Run("planted postcode gradient detected", func(t *testing.T) {
		for _, r := range outcome.Results {
			if r.GroupColumn == "postcode_group" && r.Metric == stats.MetricClaimFrequency {
				if !r.Significant(0.05) {
					t.Errorf("planted tier effect not significant: p=%v q=%v", r.PValue, r.QValue)
				}
			}
		}
	})
}

func TestMetricsBy(t *testing.T) {
	b, outcome := generatedBattery(t)

	metrics := outcome.Metrics[policy.ColProvince]
	if len(metrics) == 0 {
		t.Fatal("no province metrics")
	}

	total := 0
	for _, m := range metrics {
		total += m.SampleSize
		if m.ClaimFrequency < 0 || m.ClaimFrequency > 1 {
			t.Errorf("%s: claim frequency %v outside [0, 1]", m.Group, m.ClaimFrequency)
		}
		if m.ClaimCount > 0 && m.ClaimSeverity <= 0 {
			t.Errorf("%s: severity %v with %d claims", m.Group, m.ClaimSeverity, m.ClaimCount)
		}
	}
	if total != len(b.obs) {
		t.Errorf("metrics cover %d observations, battery has %d", total, len(b.obs))
	}
}

func TestBatteryFiltersUnusableRows(t *testing.T) {
	genCfg := testkit.DefaultGeneratorConfig()
	genCfg.PolicyCount = 500
	genCfg.ZeroPremiumRate = 0.5

	table := testkit.NewPolicyGenerator(genCfg).GenerateTable()
	b, err := New(table, batteryConfig(), nil)
	if err != nil {
		t.Fatalf("failed to build battery: %v", err)
	}
	if len(b.obs) >= table.Len() {
		t.Errorf("expected zero-premium rows filtered: %d of %d kept", len(b.obs), table.Len())
	}
	for _, o := range b.obs {
		if o.premium <= 0 {
			t.Errorf("row %d kept with premium %v", o.row, o.premium)
		}
	}
}

func TestCheckGroupEquivalence(t *testing.T) {
	b, _ := generatedBattery(t)

	checks := b.CheckGroupEquivalence(policy.ColProvince, ProvinceA, ProvinceB,
		[]string{policy.ColSumInsured, policy.ColVehicleType})
	if len(checks) != 2 {
		t.Fatalf("expected 2 balance checks, got %d", len(checks))
	}
	for _, check := range checks {
		if check.PValue < 0 || check.PValue > 1 {
			t.Errorf("%s: p = %v outside [0, 1]", check.Column, check.PValue)
		}
	}
}
