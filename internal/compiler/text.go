package compiler

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/pulsenet/internal/ir"
)

const arrow = "->"

// ParseText reads declarations in the line format
//
//	broadcaster -> a, b, c
//	%a -> b
//	&inv -> a
//
// Blank lines are skipped. Names are NFC-normalized. Untagged modules
// other than the broadcaster parse as KindSink so Validate can report
// them with their line number. The only error ParseText itself returns is
// a *ValidationError with code E100 for a line without "->".
func ParseText(r io.Reader) ([]ir.Declaration, error) {
	var decls []ir.Declaration
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}

		lhs, rhs, ok := strings.Cut(text, arrow)
		if !ok {
			return nil, &ValidationError{
				Field:   "line",
				Message: fmt.Sprintf("expected \"name %s outputs\", got %q", arrow, text),
				Code:    ErrSyntax,
				Line:    line,
			}
		}

		d := parseHead(normalizeName(lhs))
		d.Line = line
		d.Outputs = parseOutputs(rhs)
		decls = append(decls, d)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read declarations: %w", err)
	}
	return decls, nil
}

// ParseTextString is ParseText over a string.
func ParseTextString(s string) ([]ir.Declaration, error) {
	return ParseText(strings.NewReader(s))
}

func parseHead(head string) ir.Declaration {
	if head == "" {
		return ir.Declaration{Kind: ir.KindSink}
	}
	if kind, ok := ir.KindFromTag(head[0]); ok {
		return ir.Declaration{Kind: kind, Name: normalizeName(head[1:])}
	}
	if head == ir.BroadcasterName {
		return ir.Declaration{Kind: ir.KindBroadcaster, Name: head}
	}
	return ir.Declaration{Kind: ir.KindSink, Name: head}
}

func parseOutputs(rhs string) []string {
	outputs := []string{}
	if strings.TrimSpace(rhs) == "" {
		return outputs
	}
	for _, part := range strings.Split(rhs, ",") {
		outputs = append(outputs, normalizeName(part))
	}
	return outputs
}

func normalizeName(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// FormatText renders declarations back to the line format.
func FormatText(decls []ir.Declaration) string {
	var b strings.Builder
	for _, d := range decls {
		b.WriteString(d.Kind.Tag())
		b.WriteString(d.Name)
		b.WriteString(" ")
		b.WriteString(arrow)
		if len(d.Outputs) > 0 {
			b.WriteString(" ")
			b.WriteString(strings.Join(d.Outputs, ", "))
		}
		b.WriteString("\n")
	}
	return b.String()
}
