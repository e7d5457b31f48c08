package strategyconfig

// Default returns the built-in strategy
// SSOT: config/strategy/fingear_tw.yaml 과 동일한 값 유지
func Default() *Config {
	return &Config{
		Meta: Meta{
			StrategyID: "fingear_tw",
			Version:    "1.0.0",
			Timezone:   "Asia/Taipei",
		},
		Fundamental: Fundamental{
			TopK:       30,
			ScoreScale: 40,
			MinPETier:  0,
			Weights: FactorWeights{
				PERelative:       0.30,
				ROE:              0.15,
				EPSYoY:           0.15,
				FCF:              0.10,
				GrossMarginTrend: 0.10,
				RevenueYoY:       0.10,
				DebtRatio:        0.10,
			},
			Tiers: FactorTiers{
				// 현재 PER / 과거 PER 중앙값 (낮을수록 좋음)
				PERelative: TierTable{
					Steps:           steps(0.7, 0.85, 1.0, 1.2),
					RequirePositive: true,
				},
				ROE:              TierTable{Steps: steps(20, 15, 10, 5)},
				EPSYoY:           TierTable{Steps: steps(30, 15, 5, 0)},
				FCF:              TierTable{Steps: steps(5_000_000_000, 1_000_000_000, 100_000_000, 0)},
				GrossMarginTrend: TierTable{Steps: steps(2, 1, 0, -1)},
				RevenueYoY:       TierTable{Steps: steps(25, 15, 5, 0)},
				// 부채비율 % (낮을수록 좋음)
				DebtRatio: TierTable{Steps: steps(30, 40, 50, 60)},
			},
		},
		Flow: Flow{
			WindowDays:        5,
			StrengthThreshold: 60,
			Weights: FlowWeights{
				TrustStreak:      0.30,
				ForeignTrend:     0.25,
				DealerActivity:   0.15,
				InstitutionalNet: 0.20,
				HolderTrend:      0.10,
			},
			ForeignStrongAvg:      1000,
			ForeignWeakAvg:        -1000,
			DealerFloor:           -500,
			InstitutionalStrong:   5000,
			InstitutionalModerate: 1000,
			HolderStrongDelta:     0.5,
		},
		Technical: Technical{
			RSIPeriod:        14,
			BollingerWindow:  20,
			BollingerK:       2,
			VolumeWindow:     20,
			VolumeSurgeRatio: 1.5,
			Weights: TechnicalWeights{
				MAAlignment: 0.25,
				Momentum:    0.20,
				RSI:         0.15,
				Stochastic:  0.15,
				Volume:      0.15,
				Band:        0.10,
			},
			Bands: SignalBands{
				StrongBuy: 65,
				Buy:       50,
				Watch:     35,
			},
			OverheatBiasPct: 20,
			EntryBiasMaxPct: 10,
		},
		Pipeline: Pipeline{
			Workers:   8,
			CacheSize: 4096,
		},
	}
}

// steps builds a tier table for tiers 5,4,3,2 from four thresholds
func steps(t5, t4, t3, t2 float64) []TierStep {
	return []TierStep{
		{Threshold: t5, Tier: 5},
		{Threshold: t4, Tier: 4},
		{Threshold: t3, Tier: 3},
		{Threshold: t2, Tier: 2},
	}
}
