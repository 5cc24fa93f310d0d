package scrape

// Selector names one extraction target and the XPath locating it on an ad
// page. The table is evaluated in order so downstream merges stay
// deterministic.
type Selector struct {
	Field string
	XPath string
}

// DefaultSelectors returns the extraction targets for arbeidsplassen ad
// pages.
func DefaultSelectors() []Selector {
	return []Selector{
		{FieldTitle, `//*[@id="main-content"]/article/div/h1`},
		{FieldCompany, `//*[@id="main-content"]/article/div/section[1]/div[1]/p`},
		{FieldLocation, `//*[@id="main-content"]/article/div/section[1]/div[2]/p`},
		{FieldJobContent, `//div[contains(@class, "job-posting-text")]`},
		{FieldEmployer, `//h2[contains(text(), "Om bedriften")]/../div`},
		{FieldDeadline, `//h2[contains(text(), "Søk på jobben")]/../p`},
		{FieldAbout, `//h2[contains(text(), "Om jobben")]/../../dl`},
		{FieldContactPerson, `//h2[contains(text(), "Kontaktperson for stillingen") or contains(text(), "Kontaktpersoner for stillingen")]/..`},
		{FieldAdData, `//h2[contains(text(), "Annonsedata")]/../dl`},
	}
}
