package normalize

import (
	"regexp"
	"strconv"
	"strings"
)

// Rule maps every input containing one of Triggers to Canonical. Triggers are
// matched against the cleaned input padded with single spaces, so a trigger
// like " bp " only matches the whole word and " infect" only matches at the
// start of a word. Short stems that occur inside unrelated words ("eating" in
// "treating") must be anchored this way. When Resolve is set it picks the
// canonical value from the padded input instead.
type Rule struct {
	Canonical string
	Triggers  []string
	Resolve   func(haystack string) string
}

func (r Rule) matches(haystack string) bool {
	for _, t := range r.Triggers {
		if strings.Contains(haystack, t) {
			return true
		}
	}
	return false
}

func (r Rule) canonical(haystack string) string {
	if r.Resolve != nil {
		return r.Resolve(haystack)
	}
	return r.Canonical
}

// DefaultRules is the clinical vocabulary in priority order. Earlier rules win
// when triggers overlap, so narrower terms precede the broader ones that would
// otherwise swallow them (afebrile before fever, uti before infection).
var DefaultRules = []Rule{
	{Canonical: "pressure_injury", Resolve: pressureInjuryStage, Triggers: []string{
		"pressure injur", "pressure ulcer", "pressure sore", "pressure wound", "bed sore", "bedsore", "decubitus",
	}},
	{Canonical: "oxygen_saturation", Triggers: []string{
		"spo2", " sao2 ", " sats ", " sat ", "pulse ox", "o2 sat", "oxygen sat", "saturation", "oxygen level",
	}},
	{Canonical: "shortness_of_breath", Triggers: []string{
		"shortness of breath", "short of breath", " sob ", "breathless", "trouble breathing",
		"difficulty breathing", "hard to breathe", "dyspnea",
	}},
	// ECMO precedes oxygen flow: "membrane oxygenation" contains "oxygen".
	{Canonical: "ecmo", Triggers: []string{
		" ecmo ", "eckmo", " ekmo ", " echmo ", "extracorporeal",
	}},
	{Canonical: "oxygen_flow", Triggers: []string{
		"oxygen", " o2 ", "nasal cannula", "cannula", "high flow", "liters of o2",
	}},
	{Canonical: "heart_rate", Triggers: []string{
		"heart rate", " pulse ", " hr ", " bpm ", "heartbeat", "heart beat",
	}},
	{Canonical: "blood_pressure", Triggers: []string{
		"blood pressure", " bp ", " b/p ", "systolic", "diastolic", "hypertension", "hypotension",
	}},
	{Canonical: "afebrile", Triggers: []string{
		"afebrile", "no fever", "fever free", "fever is gone", "fever has broken", "without fever", "without a fever",
	}},
	{Canonical: "fever", Triggers: []string{
		"fever", "febrile", "pyrexia",
	}},
	{Canonical: "temperature", Triggers: []string{
		"temperature", " temp ", " temps ", "tmax", " t max ",
	}},
	{Canonical: "creatinine", Triggers: []string{
		"creatinine", "creatinin", "creatine", "creatnine", " cr ", "kidney function", "kidney number", "renal function",
	}},
	{Canonical: "acute_kidney_injury", Triggers: []string{
		" aki ", "kidney injury", "kidney failure", "renal failure",
	}},
	// "Dallas" is a common transcription of "dialysis".
	{Canonical: "dialysis", Triggers: []string{
		"dialysis", "dialyses", " dallas ", " crrt ", "hemodialysis",
	}},
	{Canonical: "wbc", Triggers: []string{
		" wbc ", " wbcs ", "white blood cell", "white blood count", "white count", "white cell", "leukocyte",
	}},
	{Canonical: "mechanical_ventilation", Triggers: []string{
		"ventilator", "ventilation", "intubat", " vent ", "breathing tube", "breathing machine",
	}},
	{Canonical: "tracheostomy", Triggers: []string{
		"tracheostomy", "trach tube", " trach ", " trake ", " trek ",
	}},
	// "Whittier" is a common transcription of "Whipple".
	{Canonical: "whipple_procedure", Triggers: []string{
		"whipple", "whittier", "pancreaticoduodenectomy",
	}},
	{Canonical: "sepsis", Triggers: []string{
		"sepsis", " septic", "cepsis", "septicemia",
	}},
	{Canonical: "pneumonia", Triggers: []string{
		"pneumonia", "new monia", "newmonia", "numonia", "lung infection", "chest infection",
	}},
	{Canonical: "delirium", Triggers: []string{
		"delirium", "delirious", " confus", "disoriented", "hallucinat", "not making sense",
	}},
	{Canonical: "pain", Resolve: painGrade, Triggers: []string{
		" pain ", " pains ", " painful", " painkiller", "hurting", " hurts ", " aching ", " ache ", " aches ",
	}},
	{Canonical: "hemoglobin", Triggers: []string{
		"hemoglobin", "haemoglobin", " hgb ", " hb ",
	}},
	{Canonical: "platelets", Triggers: []string{
		"platelet", " plt ",
	}},
	{Canonical: "potassium", Triggers: []string{
		"potassium",
	}},
	{Canonical: "lactate", Triggers: []string{
		"lactate", "lactic",
	}},
	{Canonical: "respiratory_rate", Triggers: []string{
		"respiratory rate", "resp rate", " rr ", "breathing rate", "breaths per minute",
	}},
	{Canonical: "blood_sugar", Triggers: []string{
		"blood sugar", "glucose", "sugar level", " sugars ",
	}},
	{Canonical: "weight", Triggers: []string{
		" weight ", " weighs ", " weighed ",
	}},
	{Canonical: "appetite", Triggers: []string{
		"appetite", "not eating", " eating ", " eats ", "food intake", "poor intake",
	}},
	{Canonical: "sleep", Triggers: []string{
		"sleep", "slept", "insomnia", "restless night",
	}},
	{Canonical: "fall_risk", Triggers: []string{
		"fall risk", " fall ", " fell ", " falls ", "falling",
	}},
	{Canonical: "mobility", Triggers: []string{
		"mobility", " walking ", " walked ", " walk ", "ambulat", "physical therapy", "out of bed", " getting up ",
	}},
	{Canonical: "uti", Triggers: []string{
		" uti ", "urinary tract infection", "bladder infection", "urine infection",
	}},
	{Canonical: "infection", Triggers: []string{
		" infection", " infected", " infect",
	}},
	{Canonical: "nausea_vomiting", Triggers: []string{
		"nausea", "nauseous", "nauseated", "vomit", "throwing up", "threw up",
	}},
	{Canonical: "discharge_planning", Triggers: []string{
		"discharge plan", "discharge date", " discharged", "discharge home", "discharge to ",
		"ready for discharge", "before discharge", "after discharge", "going home",
		"rehab placement", "rehab facility", "skilled nursing",
	}},
	{Canonical: "anxiety_agitation", Triggers: []string{
		"anxiety", "anxious", "agitat", "restless", " panic",
	}},
	{Canonical: "edema", Triggers: []string{
		"edema", "oedema", "swelling", "swollen", "fluid overload",
	}},
	{Canonical: "blood_clot", Triggers: []string{
		"blood clot", " clot ", " clots ", " dvt ", "embolism", "thrombosis",
	}},
}

func pressureInjuryStage(h string) string {
	switch {
	case strings.Contains(h, "unstageable"):
		return "pressure_injury_unstageable"
	case containsAny(h, "stage 4 ", "stage four", "stage iv "):
		return "pressure_injury_stage_4"
	case containsAny(h, "stage 3 ", "stage three", "stage iii "):
		return "pressure_injury_stage_3"
	case containsAny(h, "stage 2 ", "stage two", "stage ii "):
		return "pressure_injury_stage_2"
	case containsAny(h, "stage 1 ", "stage one", "stage i "):
		return "pressure_injury_stage_1"
	}
	return "pressure_injury"
}

var painScoreRe = regexp.MustCompile(` (\d{1,2}) ?(?:/|out of) ?10 `)

func painGrade(h string) string {
	switch {
	case containsAny(h, "severe", "excruciating", "unbearable", "worst"):
		return "pain_severe"
	case strings.Contains(h, "moderate"):
		return "pain_moderate"
	case containsAny(h, "mild", "slight", " little "):
		return "pain_mild"
	}
	if m := painScoreRe.FindStringSubmatch(h); m != nil {
		score, _ := strconv.Atoi(m[1])
		switch {
		case score >= 7:
			return "pain_severe"
		case score >= 4:
			return "pain_moderate"
		case score >= 1:
			return "pain_mild"
		}
	}
	return "pain"
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
