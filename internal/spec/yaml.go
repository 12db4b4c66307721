package spec

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ParseDocument decodes one YAML completion spec document into the grammar
// model. Documents are authored per tool and live in the specs directory.
func ParseDocument(data []byte) (*Subcommand, error) {
	var doc subcommandDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding completion spec: %w", err)
	}
	return doc.build(), nil
}

// LoadFile reads and decodes a spec document from disk.
func LoadFile(path string) (*Subcommand, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading completion spec: %w", err)
	}
	sub, err := ParseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("spec %s: %w", path, err)
	}
	return sub, nil
}

// nameList accepts either a scalar or a sequence in YAML.
type nameList []string

func (n *nameList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		*n = nameList{s}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		*n = nameList(list)
		return nil
	default:
		return fmt.Errorf("name must be a string or list of strings")
	}
}

type directivesDoc struct {
	OptionsMustPrecedeArguments bool     `yaml:"optionsMustPrecedeArguments"`
	FlagsArePosixNoncompliant   bool     `yaml:"flagsArePosixNoncompliant"`
	OptionArgSeparators         nameList `yaml:"optionArgSeparators"`
}

type subcommandDoc struct {
	Name              nameList         `yaml:"name"`
	Description       string           `yaml:"description"`
	ParserDirectives  directivesDoc    `yaml:"parserDirectives"`
	Subcommands       []*subcommandDoc `yaml:"subcommands"`
	Options           []*optionDoc     `yaml:"options"`
	PersistentOptions []*optionDoc     `yaml:"persistentOptions"`
	Args              []*argDoc        `yaml:"args"`
	LoadSpec          nameList         `yaml:"loadSpec"`
	FilterStrategy    string           `yaml:"filterStrategy"`
}

func (d *subcommandDoc) build() *Subcommand {
	sub := &Subcommand{
		Names:       d.Name,
		Description: d.Description,
		Directives: Directives{
			OptionsMustPrecedeArguments: d.ParserDirectives.OptionsMustPrecedeArguments,
			FlagsArePosixNoncompliant:   d.ParserDirectives.FlagsArePosixNoncompliant,
			OptionArgSeparators:         d.ParserDirectives.OptionArgSeparators,
		},
		LoadSpec:       d.LoadSpec,
		FilterStrategy: FilterStrategy(d.FilterStrategy),
	}

	for _, child := range d.Subcommands {
		sub.Subcommands = append(sub.Subcommands, child.build())
	}
	for _, opt := range d.Options {
		built := opt.build()
		if opt.IsPersistent {
			sub.PersistentOptions = append(sub.PersistentOptions, built)
		} else {
			sub.Options = append(sub.Options, built)
		}
	}
	for _, opt := range d.PersistentOptions {
		sub.PersistentOptions = append(sub.PersistentOptions, opt.build())
	}
	for _, arg := range d.Args {
		sub.Args = append(sub.Args, arg.build())
	}

	return sub
}

type optionDoc struct {
	Name              nameList  `yaml:"name"`
	Description       string    `yaml:"description"`
	Args              []*argDoc `yaml:"args"`
	RequiresEquals    bool      `yaml:"requiresEquals"`
	RequiresSeparator string    `yaml:"requiresSeparator"`
	IsDangerous       bool      `yaml:"isDangerous"`
	IsPersistent      bool      `yaml:"isPersistent"`
}

func (d *optionDoc) build() *Option {
	opt := &Option{
		Names:             d.Name,
		Description:       d.Description,
		RequiresEquals:    d.RequiresEquals,
		RequiresSeparator: d.RequiresSeparator,
		IsDangerous:       d.IsDangerous,
	}
	for _, arg := range d.Args {
		opt.Args = append(opt.Args, arg.build())
	}
	return opt
}

type argDoc struct {
	Name                string           `yaml:"name"`
	Description         string           `yaml:"description"`
	IsOptional          bool             `yaml:"isOptional"`
	IsVariadic          bool             `yaml:"isVariadic"`
	IsOptionalVariadic  bool             `yaml:"isOptionalVariadic"`
	Generators          []*generatorDoc  `yaml:"generators"`
	Suggestions         []*suggestionDoc `yaml:"suggestions"`
	IsDangerous         bool             `yaml:"isDangerous"`
	IsCommand           bool             `yaml:"isCommand"`
	IsScript            bool             `yaml:"isScript"`
	Module              string           `yaml:"module"`
	LoadSpec            string           `yaml:"loadSpec"`
	FilterStrategy      string           `yaml:"filterStrategy"`
	SuggestCurrentToken bool             `yaml:"suggestCurrentToken"`
}

func (d *argDoc) build() *Arg {
	arg := &Arg{
		Name:                d.Name,
		Description:         d.Description,
		IsOptional:          d.IsOptional,
		IsVariadic:          d.IsVariadic,
		IsOptionalVariadic:  d.IsOptionalVariadic,
		IsDangerous:         d.IsDangerous,
		IsCommand:           d.IsCommand,
		IsScript:            d.IsScript,
		Module:              d.Module,
		LoadSpec:            d.LoadSpec,
		FilterStrategy:      FilterStrategy(d.FilterStrategy),
		SuggestCurrentToken: d.SuggestCurrentToken,
	}
	for _, gen := range d.Generators {
		arg.Generators = append(arg.Generators, gen.build())
	}
	for _, sugg := range d.Suggestions {
		arg.Suggestions = append(arg.Suggestions, sugg.build())
	}
	return arg
}

type cacheDoc struct {
	Strategy         string `yaml:"strategy"`
	TTL              string `yaml:"ttl"`
	CacheByDirectory bool   `yaml:"cacheByDirectory"`
}

type generatorDoc struct {
	Script        yaml.Node `yaml:"script"`
	ScriptTimeout string    `yaml:"scriptTimeout"`
	SplitOn       string    `yaml:"splitOn"`
	Template      string    `yaml:"template"`
	Cache         *cacheDoc `yaml:"cache"`
	CacheKey      string    `yaml:"cacheKey"`
}

func (d *generatorDoc) build() *Generator {
	gen := &Generator{
		SplitOn:  d.SplitOn,
		CacheKey: d.CacheKey,
	}

	switch d.Template {
	case "filepaths":
		gen.Kind = GeneratorTemplate
		gen.Template = TemplateFilepaths
	case "folders":
		gen.Kind = GeneratorTemplate
		gen.Template = TemplateFolders
	case "help":
		gen.Kind = GeneratorTemplate
		gen.Template = TemplateHelp
	case "history":
		gen.Kind = GeneratorTemplate
		gen.Template = TemplateHistory
	default:
		gen.Kind = GeneratorScript
		switch d.Script.Kind {
		case yaml.SequenceNode:
			_ = d.Script.Decode(&gen.ScriptArgv)
		case yaml.ScalarNode:
			_ = d.Script.Decode(&gen.Script)
		}
	}

	if d.ScriptTimeout != "" {
		if timeout, err := time.ParseDuration(d.ScriptTimeout); err == nil {
			gen.ScriptTimeout = timeout
		}
	}

	if d.Cache != nil {
		policy := &CachePolicy{
			Strategy:         CacheStrategy(d.Cache.Strategy),
			CacheByDirectory: d.Cache.CacheByDirectory,
		}
		if policy.Strategy == "" {
			policy.Strategy = CacheStaleWhileRevalidate
		}
		if d.Cache.TTL != "" {
			if ttl, err := time.ParseDuration(d.Cache.TTL); err == nil {
				policy.TTL = ttl
			}
		}
		gen.Cache = policy
	}

	return gen
}

// suggestionDoc accepts either a bare name or a full suggestion mapping.
type suggestionDoc struct {
	Name        nameList
	DisplayName string
	Description string
	Type        string
	InsertValue string
	Icon        string
	Priority    float64
	IsDangerous bool
}

func (d *suggestionDoc) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		d.Name = nameList{s}
		return nil
	}

	var full struct {
		Name        nameList `yaml:"name"`
		DisplayName string   `yaml:"displayName"`
		Description string   `yaml:"description"`
		Type        string   `yaml:"type"`
		InsertValue string   `yaml:"insertValue"`
		Icon        string   `yaml:"icon"`
		Priority    float64  `yaml:"priority"`
		IsDangerous bool     `yaml:"isDangerous"`
	}
	if err := node.Decode(&full); err != nil {
		return err
	}
	d.Name = full.Name
	d.DisplayName = full.DisplayName
	d.Description = full.Description
	d.Type = full.Type
	d.InsertValue = full.InsertValue
	d.Icon = full.Icon
	d.Priority = full.Priority
	d.IsDangerous = full.IsDangerous
	return nil
}

func (d *suggestionDoc) build() Suggestion {
	return Suggestion{
		Names:       d.Name,
		DisplayName: d.DisplayName,
		Description: d.Description,
		Type:        SuggestionTypeFromString(d.Type),
		InsertValue: d.InsertValue,
		Icon:        d.Icon,
		Priority:    d.Priority,
		IsDangerous: d.IsDangerous,
	}
}
