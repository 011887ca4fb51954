package r10k

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

const (
	symbolSourcesKeyConstant          = ":sources"
	stringSourcesKeyConstant          = "sources"
	prefixSettingKeyConstant          = "prefix"
	symbolKeyMarkerConstant           = ":"
	mapstructureTagNameConstant       = "mapstructure"
	emptyDocumentMessageConstant      = "configuration document is empty"
	notMappingMessageConstant         = "configuration document is not a mapping"
	sourcesMissingMessageConstant     = "configuration has no sources"
	sourcesNotMappingMessageConstant  = "sources is not a mapping"
	noUnprefixedSourceMessageConstant = "no source without a prefix"
	sourceDecodeErrorTemplateConstant = "decode source %s: %w"
)

// Source is one entry of the r10k sources mapping.
type Source struct {
	Name    string `mapstructure:"-"`
	Remote  string `mapstructure:"remote"`
	Basedir string `mapstructure:"basedir"`
	Prefix  any    `mapstructure:"prefix"`
	// Settings holds every key of the entry, with symbol-style keys (":remote") normalized.
	Settings map[string]any `mapstructure:"-"`
}

// SourceLoader reads the main source from the configuration file named by a Locator.
type SourceLoader struct {
	locator    Locator
	fileSystem afero.Fs
}

// NewSourceLoader constructs a loader. A nil file system falls back to the OS file system.
func NewSourceLoader(locator Locator, fileSystem afero.Fs) *SourceLoader {
	if fileSystem == nil {
		fileSystem = afero.NewOsFs()
	}
	return &SourceLoader{locator: locator, fileSystem: fileSystem}
}

// Locator returns the locator the loader reads through.
func (loader *SourceLoader) Locator() Locator {
	return loader.locator
}

// MainSource reads the configuration file and returns its first unprefixed source.
// The file is read on every call.
func (loader *SourceLoader) MainSource() (Source, error) {
	configurationPath := loader.locator.ConfigurationPath()
	content, readError := afero.ReadFile(loader.fileSystem, configurationPath)
	if readError != nil {
		return Source{}, ConfigurationParseError{Path: configurationPath, Cause: readError}
	}
	return ParseMainSource(content, configurationPath)
}

// ParseMainSource decodes r10k configuration content and returns the first source, in file order,
// whose prefix is absent, null, or false. The ":sources" key wins over "sources" when both exist.
func ParseMainSource(content []byte, configurationPath string) (Source, error) {
	var document yaml.Node
	if decodeError := yaml.Unmarshal(content, &document); decodeError != nil {
		return Source{}, ConfigurationParseError{Path: configurationPath, Cause: decodeError}
	}
	if len(document.Content) == 0 {
		return Source{}, ConfigurationParseError{Path: configurationPath, Cause: errors.New(emptyDocumentMessageConstant)}
	}

	rootNode := document.Content[0]
	if rootNode.Kind != yaml.MappingNode {
		return Source{}, ConfigurationParseError{Path: configurationPath, Cause: errors.New(notMappingMessageConstant)}
	}

	sourcesNode := findMappingValue(rootNode, symbolSourcesKeyConstant)
	if sourcesNode == nil {
		sourcesNode = findMappingValue(rootNode, stringSourcesKeyConstant)
	}
	if sourcesNode == nil {
		return Source{}, ConfigurationParseError{Path: configurationPath, Cause: errors.New(sourcesMissingMessageConstant)}
	}
	sourcesNode = resolveAlias(sourcesNode)
	if sourcesNode.Kind != yaml.MappingNode {
		return Source{}, ConfigurationParseError{Path: configurationPath, Cause: errors.New(sourcesNotMappingMessageConstant)}
	}

	for pairIndex := 0; pairIndex+1 < len(sourcesNode.Content); pairIndex += 2 {
		nameNode := sourcesNode.Content[pairIndex]
		valueNode := resolveAlias(sourcesNode.Content[pairIndex+1])
		if valueNode.Kind != yaml.MappingNode {
			continue
		}

		var rawSettings map[string]any
		if decodeError := valueNode.Decode(&rawSettings); decodeError != nil {
			return Source{}, ConfigurationParseError{Path: configurationPath, Cause: decodeError}
		}
		settings := normalizeSettingKeys(rawSettings)
		if prefixIsSet(settings) {
			continue
		}

		source, decodeError := decodeSource(strings.TrimPrefix(nameNode.Value, symbolKeyMarkerConstant), settings)
		if decodeError != nil {
			return Source{}, ConfigurationParseError{Path: configurationPath, Cause: decodeError}
		}
		return source, nil
	}

	return Source{}, ConfigurationParseError{Path: configurationPath, Cause: errors.New(noUnprefixedSourceMessageConstant)}
}

// resolveAlias follows alias nodes such as `main: *defaults` to the anchored node.
func resolveAlias(node *yaml.Node) *yaml.Node {
	for node.Kind == yaml.AliasNode && node.Alias != nil {
		node = node.Alias
	}
	return node
}

func decodeSource(name string, settings map[string]any) (Source, error) {
	source := Source{Name: name, Settings: settings}
	decoder, decoderError := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          mapstructureTagNameConstant,
		WeaklyTypedInput: true,
		Result:           &source,
	})
	if decoderError != nil {
		return Source{}, decoderError
	}
	if decodeError := decoder.Decode(settings); decodeError != nil {
		return Source{}, fmt.Errorf(sourceDecodeErrorTemplateConstant, name, decodeError)
	}
	return source, nil
}

func findMappingValue(mappingNode *yaml.Node, key string) *yaml.Node {
	for pairIndex := 0; pairIndex+1 < len(mappingNode.Content); pairIndex += 2 {
		if mappingNode.Content[pairIndex].Value == key {
			return mappingNode.Content[pairIndex+1]
		}
	}
	return nil
}

func normalizeSettingKeys(rawSettings map[string]any) map[string]any {
	settings := make(map[string]any, len(rawSettings))
	for settingKey, settingValue := range rawSettings {
		settings[strings.TrimPrefix(settingKey, symbolKeyMarkerConstant)] = settingValue
	}
	return settings
}

// prefixIsSet treats only a missing key, null, and false as unset.
func prefixIsSet(settings map[string]any) bool {
	prefixValue, hasPrefix := settings[prefixSettingKeyConstant]
	if !hasPrefix || prefixValue == nil {
		return false
	}
	if booleanValue, isBoolean := prefixValue.(bool); isBoolean {
		return booleanValue
	}
	return true
}
