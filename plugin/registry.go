package plugin

import "fmt"

// Extractors is a global map of ValueExtractor plugin factories.
// The argument is the extractor key from the config file.
var Extractors = map[string]func(key string) ValueExtractor{
	"calc_rate": func(string) ValueExtractor {
		return &CalcRatePlugin{}
	},
	"json_key": func(key string) ValueExtractor {
		return NewJSONTransformer(key)
	},
}

func ExtractorLookup(name, key string) (ValueExtractor, error) {
	factory, ok := Extractors[name]
	if !ok {
		return nil, fmt.Errorf("unknown extractor: %s", name)
	}
	return factory(key), nil
}
