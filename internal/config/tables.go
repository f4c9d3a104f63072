package config

import "github.com/servicekpi/internal/model"

// Tables holds every static lookup table the integration layer consults.
type Tables struct {
	// TechMapping maps a GPS device name (technician full name, as the
	// fleet platform spells it) to the canonical technician code.
	TechMapping map[string]string `mapstructure:"tech_mapping"`
	// TechVariants maps first-name/nickname spellings seen in the job and
	// sales systems to the canonical code.
	TechVariants map[string]string `mapstructure:"tech_variants"`
	// StaffNoGPS lists canonical codes for staff who carry no tracker
	// (office staff, online orders). Keys count as valid codes.
	StaffNoGPS map[string]string `mapstructure:"staff_no_gps"`
	// KnownLocations names fixed company locations by label.
	KnownLocations map[string]string `mapstructure:"known_locations"`

	AddressAbbrevs  map[string]string `mapstructure:"address_abbrevs"`
	CountrySuffixes []string          `mapstructure:"country_suffixes"`

	ApplianceCategories []model.KeywordCategory `mapstructure:"appliance_categories"`

	DiagnosticKeywords []string `mapstructure:"diagnostic_keywords"`
	RecallKeywords     []string `mapstructure:"recall_keywords"`
	CompletedStatuses  []string `mapstructure:"completed_statuses"`

	CancelCategories []model.KeywordCategory `mapstructure:"cancel_categories"`
	CancelMarkers    []string                `mapstructure:"cancel_markers"`
}

// Default returns the fully-populated baseline configuration. A config
// file or environment overrides individual values on top of this.
func Default() *Config {
	return &Config{
		Data: DataConfig{
			Dir:       "data",
			JobsFile:  "Type6report.csv",
			SalesFile: "SlsJrnl.csv",
			GPSFiles: map[string]string{
				"day_start_end": "day_start_end.csv",
				"drives_stops":  "drives_stops.csv",
				"day_engine":    "day_engine_hours.csv",
				"idle_time":     "idle_time.csv",
				"alert":         "alert_summary.csv",
			},
			ExportDir: "export",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Matching: MatchingConfig{
			ShortAddressLen:     10,
			ShortAddressPenalty: 0.9,
			GPSThreshold:        80,
			TimeWindowMin:       30,
			MinStopSec:          300,
		},
		Goals: GoalsConfig{
			FirstTripComplete: 0.70,
			DiagnosticOnlyMin: 0.10,
			DiagnosticOnlyMax: 0.20,
			RecallMax:         0.05,
		},
		Pricing: PricingConfig{
			Zone1Call:           129,
			Zone2Call:           149,
			AdditionalAppliance: 60,
			ServiceCall: map[string]float64{
				"STANDARD":   89,
				"DIAGNOSTIC": 69,
				"WARRANTY":   0,
				"RECALL":     0,
				"FOLLOW_UP":  0,
			},
			PartsCostRatio: 0.5,
		},
		Driving: DrivingConfig{
			AlertWeights: map[string]float64{
				"Harsh Braking":      -5,
				"Harsh Cornering":    -3,
				"Harsh Acceleration": -4,
				"Speeding Over":      -7,
				"Engine Idle":        -2,
				"After Hours":        -6,
			},
			Excellent:    90,
			Good:         75,
			Average:      60,
			BelowAverage: 40,
			WindowsDays:  []int{7, 30, 90},
			DecayDays:    30,
		},
		Tables: Tables{
			TechMapping: map[string]string{
				"James":         "JS",
				"Joe":           "JD",
				"Bianca":        "BB",
				"Ricardo (NEW)": "RR",
				"Shane":         "SS",
				"Porter":        "AP",
				"Dane":          "DM",
				"Sean":          "SF",
			},
			TechVariants: map[string]string{
				"ROBERT":  "RR",
				"RICK":    "RR",
				"RICARDO": "RR",
				"JAMES":   "JS",
				"JIM":     "JS",
				"JOSEPH":  "JD",
				"JOEY":    "JD",
				"JOE":     "JD",
				"DANIEL":  "DM",
				"DANNY":   "DM",
				"DANE":    "DM",
				"SHANE":   "SS",
				"SHAWN":   "SF",
				"SEAN":    "SF",
				"BIANCA":  "BB",
				"ADAM":    "AP",
				"PORTER":  "AP",
			},
			StaffNoGPS: map[string]string{
				"MK": "Mark",
				"AJ": "Abby",
				"KH": "Kendra",
				"LL": "Laura",
				"XX": "Online",
			},
			KnownLocations: map[string]string{
				"SHOP": "466 Primero Ct, Cotati, CA 94931, USA",
			},
			AddressAbbrevs: map[string]string{
				"STREET":     "ST",
				"AVENUE":     "AVE",
				"BOULEVARD":  "BLVD",
				"DRIVE":      "DR",
				"LANE":       "LN",
				"ROAD":       "RD",
				"COURT":      "CT",
				"CIRCLE":     "CIR",
				"PLACE":      "PL",
				"HIGHWAY":    "HWY",
				"APARTMENT":  "APT",
				"SUITE":      "STE",
				"CALIFORNIA": "CA",
			},
			CountrySuffixes: []string{", USA"},
			// DISHWASHER is checked before WASHER so "DISHWASHER" does
			// not stop at the bare WASH keyword.
			ApplianceCategories: []model.KeywordCategory{
				{Name: "REFRIGERATOR", Keywords: []string{"REFRIG", "FRIDGE", "FRIG", "REFRIGERATOR", "FREEZER"}},
				{Name: "DISHWASHER", Keywords: []string{"DISH", "DISHW", "DISHWASHER"}},
				{Name: "WASHER", Keywords: []string{"WASH", "WASHER", "CLOTHES WASHER"}},
				{Name: "DRYER", Keywords: []string{"DRYER", "CLOTHES DRYER"}},
				{Name: "OVEN", Keywords: []string{"OVEN", "RANGE", "STOVE", "COOKTOP"}},
				{Name: "MICROWAVE", Keywords: []string{"MICRO", "MICROWAVE"}},
				{Name: "DISPOSAL", Keywords: []string{"DISP", "DISPOSAL", "GARBAGE DISPOSAL"}},
				{Name: "OTHER", Keywords: nil},
			},
			DiagnosticKeywords: []string{
				"diagnostic", "diagnose", "diagnosis", "quote", "quoted",
				"estimate", "not worth", "too expensive", "declined repair",
				"customer declined", "cust declined",
			},
			RecallKeywords: []string{
				"recall", "safety notice", "safety alert", "manufacturer notice",
				"service bulletin", "factory recall", "warranty recall",
			},
			CompletedStatuses: []string{"Completed", "Archived", "Closed"},
			// Reason keywords carry the reason, not the bare fact of the
			// cancellation; descriptions that only say "canceled" land in
			// the uncategorized bucket.
			CancelCategories: []model.KeywordCategory{
				{Name: "CUSTOMER_INITIATED", Keywords: []string{
					"customer declined", "cust declined", "cstmr declined",
					"declined repair", "decided against", "will fix later",
				}},
				{Name: "PRICE", Keywords: []string{
					"price too high", "too expensive", "cheaper elsewhere",
					"not worth", "found it cheaper",
				}},
				{Name: "NO_SHOW", Keywords: []string{
					"no show", "not home", "nobody home", "no answer",
				}},
				{Name: "SCHEDULING", Keywords: []string{
					"reschedule", "schedule conflict", "scheduling conflict",
					"not available", "changed appmnt", "chngd appmnt", "wrong day",
				}},
				{Name: "CHANGED_MIND", Keywords: []string{
					"changed mind", "change of mind", "changed their mind",
				}},
				{Name: "TECHNICAL", Keywords: []string{
					"fixed itself", "started working", "working again",
					"working now", "unplugged",
				}},
				{Name: "PAYMENT", Keywords: []string{
					"payment issue", "no payment", "could not pay", "cant pay",
				}},
				{Name: "OTHER", Keywords: nil},
			},
			CancelMarkers: []string{"cancel", "call off", "called off", "not home"},
		},
	}
}
