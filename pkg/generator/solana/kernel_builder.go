package solana

import (
	_ "embed"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"github.com/Amr-9/SolHunter/pkg/generator/common"
)

// EntryPoint is the name of the search kernel inside every built program.
const EntryPoint = "generate_pubkey"

//go:embed kernels/generate_pubkey.cl
var entryTemplate string

// placeholders must all appear in a template, otherwise a reworded template would
// silently produce a program without the pattern compiled in.
var placeholders = []string{
	".DefineGeneric",
	".Core",
	".PrefixBytes",
	".PrefixLen",
	".SuffixBytes",
	".SuffixLen",
}

// Program is a kernel specialized for one prefix/suffix pair.
type Program struct {
	Source     string
	EntryPoint string
	Prefix     string
	Suffix     string
}

// KernelBuilder renders the entry template around a fixed Ed25519 core.
type KernelBuilder struct {
	tmpl *template.Template
	core string
}

// NewKernelBuilder parses text as the entry template and pairs it with core.
func NewKernelBuilder(text, core string) (*KernelBuilder, error) {
	for _, p := range placeholders {
		if !strings.Contains(text, p) {
			return nil, fmt.Errorf("kernel template is missing placeholder %s", p)
		}
	}

	tmpl, err := template.New(EntryPoint).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parsing kernel template: %w", err)
	}

	return &KernelBuilder{tmpl: tmpl, core: core}, nil
}

// DefaultKernelBuilder uses the embedded entry template.
func DefaultKernelBuilder(core string) (*KernelBuilder, error) {
	return NewKernelBuilder(entryTemplate, core)
}

// Build specializes the program for prefix and suffix on the given platform.
func (b *KernelBuilder) Build(prefix, suffix string, platform common.Platform) (Program, error) {
	data := struct {
		DefineGeneric bool
		Core          string
		PrefixBytes   string
		PrefixLen     int
		SuffixBytes   string
		SuffixLen     int
	}{
		DefineGeneric: platform.KeepGenericQualifier(),
		Core:          b.core,
		PrefixBytes:   byteList(prefix),
		PrefixLen:     len(prefix),
		SuffixBytes:   byteList(suffix),
		SuffixLen:     len(suffix),
	}

	var sb strings.Builder
	if err := b.tmpl.Execute(&sb, data); err != nil {
		return Program{}, fmt.Errorf("rendering kernel: %w", err)
	}

	return Program{
		Source:     sb.String(),
		EntryPoint: EntryPoint,
		Prefix:     prefix,
		Suffix:     suffix,
	}, nil
}

// byteList renders s as a C initializer list. C rejects empty initializers, so an empty
// string becomes a single zero that the length define leaves unused.
func byteList(s string) string {
	if s == "" {
		return "0"
	}
	parts := make([]string, len(s))
	for i := 0; i < len(s); i++ {
		parts[i] = strconv.Itoa(int(s[i]))
	}
	return strings.Join(parts, ", ")
}
