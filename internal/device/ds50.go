package device

func limit(v float64) *float64 { return &v }

// DS50 returns the built-in spec of the DS-50 degasser: a 0..10 minute
// dissolved oxygen series and the factory acceptance table.
func DS50() *Spec {
	return &Spec{
		Name:           "DS-50",
		ReportTitle:    "FUS DS-50 Test Report",
		ReportVersion:  "2025.0.5",
		FilenamePrefix: "DS50_Test_Report_",
		Index: IndexSpec{
			Column:  "minute",
			Aliases: []string{"time", "minute", "minutes", "t_min"},
			Label:   "Time (min)",
			Min:     0,
			Max:     10,
		},
		Reading: ReadingSpec{
			Column:       "oxygen_mg_per_L",
			Aliases:      []string{"oxygen", "oxygen_mg_per_l", "o2", "do2"},
			Label:        "Dissolved O2",
			Unit:         "mg/L",
			PositiveOnly: true,
		},
		Ambient: AmbientSpec{
			Column:  "temperature_c",
			Aliases: []string{"temperature_c", "temp_c", "temperature", "temp"},
			Label:   "Temperature",
			Unit:    "°C",
		},
		Thresholds: []float64{4, 2},
		TestRows: []RowSpec{
			{Key: "vacuum_pressure", Description: "Vacuum Pressure", Unit: "inHg", Min: limit(-22)},
			{Key: "flow_rate", Description: "Flow Rate", Unit: "mL/min", Min: limit(300), Max: limit(700)},
			{Key: "do_level", Description: "Dissolved Oxygen level test", Unit: "mg/L", Max: limit(3.0)},
			{Key: "recirculation", Description: "Dissolved Oxygen re-circulation test (1000 mL)", Section: true},
			{Key: "recirculation_start", Description: "Starting DO Level", Unit: "mg/L", Min: limit(7.0)},
			{Key: "recirculation_to_4mg", Description: "Time to reach 4 mg/L", Unit: "min", Max: limit(5)},
			{Key: "recirculation_to_2mg", Description: "Time to reach 2 mg/L", Unit: "min", Max: limit(10)},
		},
	}
}
