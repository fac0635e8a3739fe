package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
)

// Config holds all configuration
type Config struct {
	Variables []Variable
	Models    []Model
	Plugins   []Plugin
	Bot       *BotConfig
	Keywords  *KeywordsConfig
	Storage   *StorageConfig
	Gateway   *GatewayConfig
	Logging   *LoggingConfig

	// ResolvedVars holds the resolved variable values for runtime use
	ResolvedVars map[string]cty.Value
}

func Load(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	if info.IsDir() {
		return LoadDir(path)
	}
	return LoadFile(path)
}

// LoadAndValidate loads the config and validates all components
func LoadAndValidate(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all config components are valid
func (c *Config) Validate() error {
	for _, v := range c.Variables {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("variable '%s': %w", v.Name, err)
		}
	}

	seenModels := make(map[string]bool)
	for _, m := range c.Models {
		if seenModels[m.Name] {
			return fmt.Errorf("model '%s': declared more than once", m.Name)
		}
		seenModels[m.Name] = true
		if err := m.Validate(); err != nil {
			return fmt.Errorf("model '%s': %w", m.Name, err)
		}
	}

	seenPlugins := make(map[string]bool)
	for _, p := range c.Plugins {
		if seenPlugins[p.Name] {
			return fmt.Errorf("plugin '%s': declared more than once", p.Name)
		}
		seenPlugins[p.Name] = true
		if err := p.Validate(); err != nil {
			return fmt.Errorf("plugin '%s': %w", p.Name, err)
		}
	}

	if c.Bot == nil {
		return fmt.Errorf("a bot block is required")
	}
	if err := c.Bot.Validate(c); err != nil {
		return fmt.Errorf("bot: %w", err)
	}

	if c.Storage != nil {
		if err := c.Storage.Validate(); err != nil {
			return fmt.Errorf("storage: %w", err)
		}
	}

	if c.Gateway != nil {
		if err := c.Gateway.Validate(); err != nil {
			return fmt.Errorf("gateway: %w", err)
		}
	}

	if c.Logging != nil {
		if err := c.Logging.Validate(); err != nil {
			return fmt.Errorf("logging: %w", err)
		}
	}

	return nil
}

func LoadFile(filename string) (*Config, error) {
	return loadFromFiles([]string{filename})
}

func LoadDir(dir string) (*Config, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.hcl"))
	if err != nil {
		return nil, err
	}
	return loadFromFiles(files)
}

// parsedBlocks holds all blocks extracted from a file in one pass
type parsedBlocks struct {
	Variables []*hcl.Block
	Models    []*hcl.Block
	Plugins   []*hcl.Block
	Settings  []*hcl.Block // bot, keywords, storage, gateway, logging
}

// singletonBlocks may appear at most once across all files
var singletonBlocks = []string{"bot", "keywords", "storage", "gateway", "logging"}

// loadFromFiles implements staged loading: variables → models → everything else
func loadFromFiles(files []string) (*Config, error) {
	parser := hclparse.NewParser()
	var allParsedBlocks []parsedBlocks

	schema := &hcl.BodySchema{
		Blocks: []hcl.BlockHeaderSchema{
			{Type: "variable", LabelNames: []string{"name"}},
			{Type: "model", LabelNames: []string{"name"}},
			{Type: "plugin", LabelNames: []string{"name"}},
		},
	}
	for _, name := range singletonBlocks {
		schema.Blocks = append(schema.Blocks, hcl.BlockHeaderSchema{Type: name})
	}

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("parse %s: %w", file, diags)
		}

		content, diags := hclFile.Body.Content(schema)
		if diags.HasErrors() {
			return nil, fmt.Errorf("read %s: %w", file, diags)
		}

		var pb parsedBlocks
		for _, block := range content.Blocks {
			switch block.Type {
			case "variable":
				pb.Variables = append(pb.Variables, block)
			case "model":
				pb.Models = append(pb.Models, block)
			case "plugin":
				pb.Plugins = append(pb.Plugins, block)
			default:
				pb.Settings = append(pb.Settings, block)
			}
		}
		allParsedBlocks = append(allParsedBlocks, pb)
	}

	// Stage 1: Load variables (no context needed)
	var allVars []Variable
	for _, pb := range allParsedBlocks {
		for _, block := range pb.Variables {
			var v Variable
			v.Name = block.Labels[0]
			diags := gohcl.DecodeBody(block.Body, nil, &v)
			if diags.HasErrors() {
				return nil, fmt.Errorf("decode variable %s: %w", v.Name, diags)
			}
			allVars = append(allVars, v)
		}
	}

	varsCtx, resolvedVars := buildVarsContext(allVars)

	// Stage 2: Load models (with vars context)
	var allModels []Model
	for _, pb := range allParsedBlocks {
		for _, block := range pb.Models {
			var m Model
			m.Name = block.Labels[0]
			diags := gohcl.DecodeBody(block.Body, varsCtx, &m)
			if diags.HasErrors() {
				return nil, fmt.Errorf("decode model %s: %w", m.Name, diags)
			}
			allModels = append(allModels, m)
		}
	}

	modelsCtx := buildModelsContext(varsCtx, allModels)

	cfg := &Config{
		Variables:    allVars,
		Models:       allModels,
		ResolvedVars: resolvedVars,
	}

	// Stage 3: Load plugins and settings blocks (with vars + models context)
	for _, pb := range allParsedBlocks {
		for _, block := range pb.Plugins {
			p, err := parsePluginBlock(block, modelsCtx)
			if err != nil {
				return nil, err
			}
			cfg.Plugins = append(cfg.Plugins, *p)
		}
		for _, block := range pb.Settings {
			if err := cfg.decodeSettings(block, modelsCtx); err != nil {
				return nil, err
			}
		}
	}

	return cfg, nil
}

// decodeSettings decodes one singleton block into its field on the config
func (c *Config) decodeSettings(block *hcl.Block, ctx *hcl.EvalContext) error {
	var target any
	switch block.Type {
	case "bot":
		if c.Bot != nil {
			return duplicateBlock(block)
		}
		c.Bot = &BotConfig{}
		target = c.Bot
	case "keywords":
		if c.Keywords != nil {
			return duplicateBlock(block)
		}
		c.Keywords = &KeywordsConfig{}
		target = c.Keywords
	case "storage":
		if c.Storage != nil {
			return duplicateBlock(block)
		}
		c.Storage = &StorageConfig{}
		target = c.Storage
	case "gateway":
		if c.Gateway != nil {
			return duplicateBlock(block)
		}
		c.Gateway = &GatewayConfig{}
		target = c.Gateway
	case "logging":
		if c.Logging != nil {
			return duplicateBlock(block)
		}
		c.Logging = &LoggingConfig{}
		target = c.Logging
	default:
		return fmt.Errorf("%s: unexpected block '%s'", block.DefRange, block.Type)
	}

	if diags := gohcl.DecodeBody(block.Body, ctx, target); diags.HasErrors() {
		return fmt.Errorf("decode %s: %w", block.Type, diags)
	}

	if d, ok := target.(interface{ Defaults() }); ok {
		d.Defaults()
	}
	return nil
}

func duplicateBlock(block *hcl.Block) error {
	return fmt.Errorf("%s: only one '%s' block is allowed", block.DefRange, block.Type)
}

// buildVarsContext creates context with just vars
func buildVarsContext(vars []Variable) (*hcl.EvalContext, map[string]cty.Value) {
	varsMap := make(map[string]cty.Value)
	fileVars, _ := LoadVarsFromFile()
	for _, v := range vars {
		if val, ok := fileVars[v.Name]; ok {
			varsMap[v.Name] = cty.StringVal(val)
		} else if v.Default != "" {
			varsMap[v.Name] = cty.StringVal(v.Default)
		} else {
			varsMap[v.Name] = cty.StringVal("")
		}
	}

	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"vars": cty.ObjectVal(varsMap),
		},
	}, varsMap
}

// buildModelsContext adds models to existing context.
// models.{block}.{key} evaluates to "{block}.{key}".
func buildModelsContext(ctx *hcl.EvalContext, models []Model) *hcl.EvalContext {
	modelsMap := make(map[string]cty.Value)
	for _, m := range models {
		providerModels := make(map[string]cty.Value)
		for _, modelKey := range m.AllowedModels {
			providerModels[modelKey] = cty.StringVal(m.Name + "." + modelKey)
		}
		modelsMap[m.Name] = cty.ObjectVal(providerModels)
	}

	newVars := make(map[string]cty.Value)
	for k, v := range ctx.Variables {
		newVars[k] = v
	}
	newVars["models"] = cty.ObjectVal(modelsMap)

	return &hcl.EvalContext{
		Variables: newVars,
	}
}

// parsePluginBlock parses a plugin block with optional settings
func parsePluginBlock(block *hcl.Block, ctx *hcl.EvalContext) (*Plugin, error) {
	pluginName := block.Labels[0]

	pluginContent, diags := block.Body.Content(&hcl.BodySchema{
		Attributes: []hcl.AttributeSchema{
			{Name: "source", Required: true},
			{Name: "version", Required: true},
			{Name: "task_types"},
		},
		Blocks: []hcl.BlockHeaderSchema{
			{Type: "settings"},
		},
	})
	if diags.HasErrors() {
		return nil, fmt.Errorf("plugin '%s': %w", pluginName, diags)
	}

	p := &Plugin{
		Name:     pluginName,
		Settings: make(map[string]string),
	}

	sourceVal, diags := pluginContent.Attributes["source"].Expr.Value(ctx)
	if diags.HasErrors() {
		return nil, fmt.Errorf("plugin '%s': %w", pluginName, diags)
	}
	if sourceVal.Type() != cty.String {
		return nil, fmt.Errorf("plugin '%s': source must be a string", pluginName)
	}
	p.Source = sourceVal.AsString()

	versionVal, diags := pluginContent.Attributes["version"].Expr.Value(ctx)
	if diags.HasErrors() {
		return nil, fmt.Errorf("plugin '%s': %w", pluginName, diags)
	}
	if versionVal.Type() != cty.String {
		return nil, fmt.Errorf("plugin '%s': version must be a string", pluginName)
	}
	p.Version = versionVal.AsString()

	if attr, ok := pluginContent.Attributes["task_types"]; ok {
		if diags := gohcl.DecodeExpression(attr.Expr, ctx, &p.TaskTypes); diags.HasErrors() {
			return nil, fmt.Errorf("plugin '%s' task_types: %w", pluginName, diags)
		}
	}

	for _, settingsBlock := range pluginContent.Blocks {
		attrs, diags := settingsBlock.Body.JustAttributes()
		if diags.HasErrors() {
			return nil, fmt.Errorf("plugin '%s' settings: %w", pluginName, diags)
		}

		for name, attr := range attrs {
			val, diags := attr.Expr.Value(ctx)
			if diags.HasErrors() {
				return nil, fmt.Errorf("plugin '%s' setting '%s': %w", pluginName, name, diags)
			}
			p.Settings[name] = settingString(val)
		}
	}

	return p, nil
}

func settingString(val cty.Value) string {
	switch val.Type() {
	case cty.String:
		return val.AsString()
	case cty.Bool:
		return fmt.Sprintf("%v", val.True())
	case cty.Number:
		return val.AsBigFloat().String()
	default:
		return val.GoString()
	}
}
