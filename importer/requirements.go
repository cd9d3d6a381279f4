package importer

import "regexp"

// NotAvailable fills requirement fields the parser could not locate.
const NotAvailable = "N/A"

// Requirements is one parsed hardware block (minimum or recommended).
type Requirements struct {
	OS      string
	CPU     string
	RAM     string
	GPU     string
	Storage string
}

// RequirementsParser turns a pc_requirements HTML block into named fields.
type RequirementsParser interface {
	ParseRequirements(block string) Requirements
}

// HeuristicParser extracts each field as the text between its label and the
// next label likely to follow it. It is best-effort: unusual layouts yield
// odd captures or N/A, never an error.
type HeuristicParser struct{}

var (
	reqOS      = regexp.MustCompile(`(?i)OS\s*:?\s*(.*?)(?:Processor|Memory|Graphics|Storage|DirectX|$)`)
	reqCPU     = regexp.MustCompile(`(?i)Processor\s*:?\s*(.*?)(?:Memory|Graphics|Storage|DirectX|OS|$)`)
	reqRAM     = regexp.MustCompile(`(?i)Memory\s*:?\s*(.*?)(?:Graphics|Storage|DirectX|OS|Processor|$)`)
	reqGPU     = regexp.MustCompile(`(?i)Graphics\s*:?\s*(.*?)(?:Storage|DirectX|OS|Processor|Memory|$)`)
	reqStorage = regexp.MustCompile(`(?i)Storage\s*:?\s*(.*?)(?:DirectX|Sound Card|Additional Notes|$)`)
)

func (HeuristicParser) ParseRequirements(block string) Requirements {
	return ParseRequirements(block)
}

func ParseRequirements(block string) Requirements {
	text := Strip(block)
	return Requirements{
		OS:      extractField(reqOS, text),
		CPU:     extractField(reqCPU, text),
		RAM:     extractField(reqRAM, text),
		GPU:     extractField(reqGPU, text),
		Storage: extractField(reqStorage, text),
	}
}

func extractField(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return NotAvailable
	}
	return collapseSpace(m[1])
}
