package params

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// dateLayouts are tried in order when decoding general.startDate.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Load reads a parameter file (YAML or JSON) and validates it.
func Load(path string) (*ParameterSet, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to read parameter file %s: %w", path, err)
	}
	return decode(k)
}

// Parse decodes and validates a parameter set held in memory.
func Parse(data []byte) (*ParameterSet, error) {
	raw, err := yaml.Parser().Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse parameter set: %w", err)
	}

	k := koanf.New(".")
	if err := k.Load(confmap.Provider(raw, ""), nil); err != nil {
		return nil, fmt.Errorf("failed to load parameter set: %w", err)
	}
	return decode(k)
}

func decode(k *koanf.Koanf) (*ParameterSet, error) {
	var ps ParameterSet
	err := k.UnmarshalWithConf("", &ps, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				stringToDateHook(),
				mapstructure.StringToTimeDurationHookFunc(),
			),
			WeaklyTypedInput: true,
			Result:           &ps,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("unable to decode parameter set: %w", err)
	}

	if err := ps.Validate(); err != nil {
		return nil, err
	}
	return &ps, nil
}

func stringToDateHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if from.Kind() != reflect.String || to != reflect.TypeOf(time.Time{}) {
			return data, nil
		}
		s := strings.TrimSpace(data.(string))
		if s == "" {
			return time.Time{}, nil
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
		return nil, fmt.Errorf("unrecognised date %q", s)
	}
}
