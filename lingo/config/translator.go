package config

import (
	"lingo/lingo/utils/logging"

	"github.com/magiconair/properties"
	"go.uber.org/zap"
)

const DefaultSystemPrompt = "I want you to act as an English translator, spelling corrector and improver. Keep the meaning same, but make them more literary."

// TranslatorConfig is the prompt preset sent with every translation request.
type TranslatorConfig struct {
	SystemPrompt string
	Model        string
	Temperature  float64
}

// LoadTranslatorConfig reads the preset file at path. Env values act as
// defaults for keys the file leaves out; a missing file yields the defaults.
func LoadTranslatorConfig(path string, cfg Config) TranslatorConfig {
	defaults := TranslatorConfig{
		SystemPrompt: DefaultSystemPrompt,
		Model:        cfg.LLMModel,
		Temperature:  cfg.LLMTemperature,
	}
	props, err := properties.LoadFile(path, properties.UTF8)
	if err != nil {
		logging.AppLogger.Warn("translator config not loaded, using defaults",
			zap.String("path", path), zap.Error(err))
		return defaults
	}
	return TranslatorConfig{
		SystemPrompt: props.GetString("system_prompt", defaults.SystemPrompt),
		Model:        props.GetString("model", defaults.Model),
		Temperature:  props.GetFloat64("temperature", defaults.Temperature),
	}
}
