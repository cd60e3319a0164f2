package domain

// NotFound is the literal answer the extractor returns when a value is absent.
const NotFound = "Not found"

// Variable is one entry of the extraction catalogue: a question used to
// retrieve context and a question used to generate the answer from it.
type Variable struct {
	Name             string `json:"name" toml:"name"`
	RetrieveQuestion string `json:"retrieve_question" toml:"retrieve_question"`
	GenerateQuestion string `json:"generate_question" toml:"generate_question"`
}

// Validate returns ErrInvalidInput when a field is missing.
func (v Variable) Validate() error {
	if v.Name == "" || v.RetrieveQuestion == "" || v.GenerateQuestion == "" {
		return ErrInvalidInput
	}
	return nil
}

// FindVariable returns the catalogue entry with the given name.
func FindVariable(vars []Variable, name string) (Variable, bool) {
	for _, v := range vars {
		if v.Name == name {
			return v, true
		}
	}
	return Variable{}, false
}

// DefaultVariables returns the contract extraction catalogue.
// A fresh slice is returned on every call.
func DefaultVariables() []Variable {
	return []Variable{
		{
			Name: "deal_name",
			RetrieveQuestion: "Find text containing <PRODUCT> tags that describe the agreement type, " +
				"or <LEGAL> tags that contain the word 'Agreement'. Focus on the first few paragraphs of the document.",
			GenerateQuestion: "Extract ONLY the core agreement type (e.g. 'License Agreement', 'Service Agreement'). " +
				"If you see <PRODUCT>License Agreement</PRODUCT> or <LEGAL>License Agreement</LEGAL>, " +
				"return just 'License Agreement' without any party names or dates.",
		},
		{
			Name: "license_period",
			RetrieveQuestion: `Find text containing:
1. Tables or definitions that mention 'Pay License Period' or 'License Period'
2. Look for <examples> tags containing date ranges
3. Look for <DATE> tags containing date ranges
4. Look for text that shows examples of license periods in DD/MM/YYYY-DD/MM/YYYY format
5. Focus on text that defines or shows examples of license periods

Example text to match:
- <examples>"01/07/2020-05/01/2023"</examples>
- <definition>Pay License Period</definition>
- <DATE>01/07/2020-05/01/2023</DATE>
- Tables showing license period dates`,
			GenerateQuestion: `Extract ONLY the exact license period date range.

Rules:
1. If you find a date range in <examples> tags within a Pay License Period definition, use that exact value
2. If you find a date range in <DATE> tags, use that exact value
3. Return the date range in exactly the format shown (e.g., '01/07/2020-05/01/2023')
4. Do not modify or reformat the dates
5. Do not include any explanatory text
6. If multiple periods exist, prioritize the Pay License Period
7. Look for date ranges in both <examples> and <DATE> tags
8. If no specific date range is found, return 'Not found'

Example matches:
Input: '<examples>"01/07/2020-05/01/2023"</examples>'
Output: '01/07/2020-05/01/2023'

Input: '<DATE>01/07/2020-05/01/2023</DATE>'
Output: '01/07/2020-05/01/2023'`,
		},
		{
			Name: "license_fee",
			RetrieveQuestion: "Find text containing <PAYMENT> tags or numbers with currency symbols (€, $) near terms like " +
				"'fee', 'payment', 'amount', 'cost', or 'price'. Also look for numbers followed by /H or per hour.",
			GenerateQuestion: "Extract ONLY the exact payment amount with its currency symbol and rate " +
				"(e.g., €3.000,00/H or €42.000,00). Return the full amount exactly as written, " +
				"NOT including any hourly rates, just the total sums.",
		},
		{
			Name: "contract_status",
			RetrieveQuestion: "Find text containing <STATUS> tags or <LEGAL> tags that indicate the agreement's current state. " +
				"Also look for phrases like 'Read, Agreed and executed', 'terminated', 'active', " +
				"or text about contract effectiveness and termination.",
			GenerateQuestion: `Based on the tagged text, determine and return ONLY one of these status values:
- 'Active' if the agreement is currently in force
- 'Terminated' if the agreement shows signs of being completed, executed, or ended (including phrases like 'Read, Agreed and executed')
- 'Draft' if the agreement appears to be in draft form
- 'Not found' if the status cannot be determined

For example:
- <STATUS>Read, Agreed and executed</STATUS> should return 'Terminated'
- <STATUS>Active</STATUS> should return 'Active'
- <LEGAL>This agreement is currently in effect</LEGAL> should return 'Active'`,
		},
		{
			Name: "licensor",
			RetrieveQuestion: `Find text containing:
1. <PARTY> tags with the word 'LICENSOR' in them
2. Text near phrases like 'hereinafter the "licensor"'
3. Text in the opening paragraphs where parties are first introduced

Focus on the agreement's header section where parties are first defined.`,
			GenerateQuestion: `Extract ONLY the company/entity name that is identified as the licensor.

Rules:
1. Look for text between <PARTY> tags that appears BEFORE 'hereinafter the "licensor"'
2. Return the exact name as it appears in the document
3. Do not include any additional text or explanations
4. If multiple matches exist, prioritize the one that appears first in the document header
5. If no clear licensor is found, return 'Not found'`,
		},
		{
			Name: "licensee",
			RetrieveQuestion: "Find text containing <COMPANY> or <PARTY> tags where the licensee is first introduced as a party " +
				"in the agreement. Look specifically at the beginning of the document where parties are defined.",
			GenerateQuestion: "Return ONLY the company/entity name of the licensee. Look for text patterns like " +
				"'hereinafter \"the licensee\"' or where the second party is introduced after the licensor.",
		},
		{
			Name: "licensor_address",
			RetrieveQuestion: "Find text containing <ADDRESS> tags that appear IMMEDIATELY AFTER the licensor is named " +
				"and BEFORE the word 'AND' that introduces the second party.",
			GenerateQuestion: "Extract ONLY the first address that appears after the licensor is named and before the " +
				"second party is introduced. Return exactly what appears between the <ADDRESS> tags in that location only.",
		},
		{
			Name:             "licensee_address",
			RetrieveQuestion: "Find text containing <ADDRESS> tags that appear near the licensee's <COMPANY> tags.",
			GenerateQuestion: "Extract ONLY the complete address found between <ADDRESS> tags that appears with the licensee's details.",
		},
		{
			Name: "document_language",
			RetrieveQuestion: "Find text containing <PRODUCT> tags with 'Language' or 'language version' mentions, " +
				"or <LEGAL> tags discussing document languages.",
			GenerateQuestion: "List ALL languages mentioned as official document versions. " +
				"For Italian language mentions, return just 'Italian'. Return only the language name.",
		},
		{
			Name: "territory",
			RetrieveQuestion: "Find text containing <TERRITORY> tags that specify geographical regions, " +
				"especially near phrases like 'Licensed territory' or 'Territory'.",
			GenerateQuestion: "Extract ALL territories listed between <TERRITORY> tags. Format as a bullet list with each " +
				"territory on a new line starting with '- '. Remove any '(the \"Territory\")' type annotations.",
		},
		{
			Name: "rights_granted",
			RetrieveQuestion: `Find text containing <RIGHTS> tags or <PRODUCT> tags that describe distribution rights, licenses, or permissions.
Look for:
- Text near terms like 'Distribution', 'rights granted', 'license', 'exploitation'
- Sections describing VOD, SVOD, PPV, EST, DTR, DTO
- Text containing <RIGHTS> tags that mention viewing or distribution methods
- Sections discussing theatrical, television, or home entertainment rights
- Text about linear and non-linear distribution
- Sections mentioning catch-up rights or near video on demand
Focus especially on text that appears in licensing terms or rights sections.`,
			GenerateQuestion: `Extract ALL rights granted, including distribution and exploitation rights. Format as a bullet list where each line starts with '- '.

Include rights such as:
- Download to Rent
- DTO (Download to Own)
- SVOD (Subscription Video on Demand)
- FVOD (Free Video on Demand)
- Near Video on Demand
- Catch Up rights
- PPV (Pay Per View)
- Television rights
- Theatrical rights
- Linear/Non-Linear Distribution
- EST (Electronic Sell-Through)
- Home Entertainment
- DTR (Download to Rent)

For example:
- Download to Rent
- SVOD
- Pay Per View

Return ALL rights mentioned in the text, preserving the exact terminology used in the document. Include both abbreviated (e.g., 'PPV') and full forms if both are mentioned.`,
		},
		{
			Name:             "contract_currency",
			RetrieveQuestion: "Find text containing <PAYMENT> tags with € symbols or text containing the word 'Euro' or 'euro'.",
			GenerateQuestion: "Return ONLY 'EUR' if euro symbols (€) or the word 'euro/Euro' is found in the payment amounts " +
				"or currency specifications.",
		},
		{
			Name: "due_date",
			RetrieveQuestion: "Find text containing <TERM> tags near payment terms, especially looking for text that mentions " +
				"payment timing, days, or due dates. Focus on text that appears near <PAYMENT> tags and mentions of " +
				"invoice payment terms.",
			GenerateQuestion: `Extract ONLY the exact payment timing terms. If you find a specific payment schedule like '90 [ninety] days end month from the start avail date', return it exactly as written.

For example:
- If you see '<TERM>90 [ninety] days end month</TERM> from the start avail date of the License Period' return exactly that
- If you see other specific payment timing terms, return them exactly as written
- If no specific payment timing is found, return 'Not found'

Do not include the payment amounts or other terms - focus only on the timing/due date information.`,
		},
		{
			Name: "definitions",
			RetrieveQuestion: `Find text containing definitions by looking for these specific patterns:
1. Text containing 'means' or 'shall mean' near <PRODUCT>, <TERM>, or <RIGHTS> tags
2. Text matching pattern '[Term]: means' or '[Term] shall mean'
3. Text containing 'Extended Catch-Up', 'Catch Up', 'Video on Demand', or similar technical terms followed by their definitions
4. Text blocks starting with bullet points or numbers that define technical terms
5. Text containing timing specifications like '48 hours', '30 day period' near technical terms
6. Sections titled 'Definitions', 'Terms', or 'Glossary'
7. Look for definitions related to:
   - Catch-Up services
   - Video on Demand
   - Storage periods
   - Viewing periods
   - Playback rights
   - Technical specifications

Example text to match:
- "Extended Catch-Up: means the ability to store..."
- "<PRODUCT>Term</PRODUCT> means..."
- "1.1 [Term] shall mean..."
- "• Technical Term: means..."`,
			GenerateQuestion: `Extract and format ALL definitions as a bulleted list. For each definition:
1. Start with "• "
2. Include the term followed by ": " (colon and space)
3. Include the complete definition including all technical specifications and time periods
4. Preserve exact timing specifications (e.g., "48 hours", "30 day period")
5. Keep all technical details exactly as written

Format each definition exactly like this:
• Term: complete definition

Example of correct formatting:
• Extended Catch-Up: means the ability to store the Audiovisual Work on a connected device for unconnected playback within 48 hours from initial playback (Viewing Period) within a 30 day storage period

Important:
- Include ALL definitions found, even if they appear outside a dedicated definitions section
- Keep technical specifications and timing details exactly as written
- Don't summarize or modify the definitions
- Include definitions even if they're part of numbered lists or bullet points
- Return 'Not found' if no definitions matching these patterns are found`,
		},
	}
}
