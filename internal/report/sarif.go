package report

import (
	"encoding/json"
	"io"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/Wladim1r/lintrun/internal/result"
	"github.com/Wladim1r/lintrun/lint"
)

const (
	sarifSchema  = "https://json.schemastore.org/sarif-2.1.0.json"
	sarifVersion = "2.1.0"
)

type sarifLog struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool        sarifTool         `json:"tool"`
	Invocations []sarifInvocation `json:"invocations"`
	Results     []sarifResult     `json:"results"`
}

// sarifInvocation carries run errors, which have no source location.
type sarifInvocation struct {
	ExecutionSuccessful        bool                `json:"executionSuccessful"`
	ToolExecutionNotifications []sarifNotification `json:"toolExecutionNotifications"`
}

type sarifNotification struct {
	Level   string       `json:"level"`
	Message sarifMessage `json:"message"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name           string      `json:"name"`
	Version        string      `json:"version,omitempty"`
	InformationURI string      `json:"informationUri,omitempty"`
	Rules          []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string         `json:"id"`
	Name             string         `json:"name,omitempty"`
	ShortDescription sarifMessage   `json:"shortDescription"`
	Properties       map[string]any `json:"properties,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifResult struct {
	RuleID    string          `json:"ruleId"`
	RuleIndex int             `json:"ruleIndex"`
	Level     string          `json:"level"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations"`
	Fixes     []sarifFix      `json:"fixes,omitempty"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           *sarifRegion          `json:"region,omitempty"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine   int `json:"startLine,omitempty"`
	StartColumn int `json:"startColumn,omitempty"`
	EndLine     int `json:"endLine,omitempty"`
	EndColumn   int `json:"endColumn,omitempty"`
}

type sarifFix struct {
	Description     sarifMessage          `json:"description"`
	ArtifactChanges []sarifArtifactChange `json:"artifactChanges"`
}

type sarifArtifactChange struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Replacements     []sarifReplacement    `json:"replacements"`
}

type sarifReplacement struct {
	DeletedRegion   sarifRegion   `json:"deletedRegion"`
	InsertedContent *sarifMessage `json:"insertedContent,omitempty"`
}

// Level maps a severity onto the SARIF result level.
func Level(s lint.Severity) string {
	switch s {
	case lint.SevError:
		return "error"
	case lint.SevWarning:
		return "warning"
	default:
		return "note"
	}
}

// WriteSARIF encodes res as an indented SARIF 2.1.0 log.
func WriteSARIF(w io.Writer, res *result.Result, tool Tool) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(buildSARIF(res, tool))
}

func buildSARIF(res *result.Result, tool Tool) *sarifLog {
	run := sarifRun{
		Tool: sarifTool{Driver: sarifDriver{
			Name:           tool.Name,
			Version:        tool.Version,
			InformationURI: tool.InfoURI,
			Rules:          make([]sarifRule, 0),
		}},
		Results: make([]sarifResult, 0),
	}

	inv := sarifInvocation{
		ExecutionSuccessful:        true,
		ToolExecutionNotifications: make([]sarifNotification, 0),
	}
	if res != nil {
		for _, e := range res.Errors {
			inv.ToolExecutionNotifications = append(inv.ToolExecutionNotifications, sarifNotification{
				Level:   "error",
				Message: sarifMessage{Text: e},
			})
		}
		inv.ExecutionSuccessful = len(res.Errors) == 0
	}
	run.Invocations = []sarifInvocation{inv}

	ruleIndex := make(map[string]int)
	if res != nil {
		for _, d := range res.Messages {
			idx, ok := ruleIndex[d.Code]
			if !ok {
				idx = len(run.Tool.Driver.Rules)
				ruleIndex[d.Code] = idx
				run.Tool.Driver.Rules = append(run.Tool.Driver.Rules, sarifRule{
					ID:               d.Code,
					Name:             d.Category,
					ShortDescription: sarifMessage{Text: d.Message},
					Properties:       map[string]any{"category": d.Category},
				})
			}
			run.Results = append(run.Results, sarifResultFor(d, idx))
		}
	}

	return &sarifLog{
		Schema:  sarifSchema,
		Version: sarifVersion,
		Runs:    []sarifRun{run},
	}
}

func sarifResultFor(d lint.Diagnostic, ruleIdx int) sarifResult {
	r := sarifResult{
		RuleID:    d.Code,
		RuleIndex: ruleIdx,
		Level:     Level(d.Severity),
		Message:   sarifMessage{Text: d.Message},
		Locations: []sarifLocation{{
			PhysicalLocation: sarifPhysicalLocation{
				ArtifactLocation: sarifArtifactLocation{URI: fileURI(d.Span.File)},
				Region:           regionOf(d.Span),
			},
		}},
	}

	for _, fix := range d.Fixes {
		changes := make(map[string]*sarifArtifactChange)
		var order []string
		for _, edit := range fix.Edits {
			region := regionOf(edit.Span)
			if region == nil {
				continue
			}
			uri := fileURI(edit.Span.File)
			ch, ok := changes[uri]
			if !ok {
				ch = &sarifArtifactChange{ArtifactLocation: sarifArtifactLocation{URI: uri}}
				changes[uri] = ch
				order = append(order, uri)
			}
			ch.Replacements = append(ch.Replacements, sarifReplacement{
				DeletedRegion:   *region,
				InsertedContent: &sarifMessage{Text: edit.NewText},
			})
		}
		if len(order) == 0 {
			continue
		}
		sf := sarifFix{Description: sarifMessage{Text: fix.Title}}
		for _, uri := range order {
			sf.ArtifactChanges = append(sf.ArtifactChanges, *changes[uri])
		}
		r.Fixes = append(r.Fixes, sf)
	}
	return r
}

// regionOf carries the real range; spans without line data have no region.
func regionOf(s lint.Span) *sarifRegion {
	if !s.Start.IsValid() {
		return nil
	}
	r := &sarifRegion{StartLine: s.Start.Line, StartColumn: s.Start.Column}
	if s.End.IsValid() {
		r.EndLine = s.End.Line
		r.EndColumn = s.End.Column
	}
	return r
}

func fileURI(path string) string {
	if path == "" || !filepath.IsAbs(path) {
		return filepath.ToSlash(path)
	}
	p := filepath.ToSlash(path)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return (&url.URL{Scheme: "file", Path: p}).String()
}
