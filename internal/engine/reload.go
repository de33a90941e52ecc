package engine

import (
	"cyclone-engine/internal/audio"
	"cyclone-engine/internal/settings"
)

// VolumeSetter receives reloaded volumes.
type VolumeSetter interface {
	SetVolume(category audio.Category, value float64) error
}

// ReloadVolumes pushes the authored volumes in cfg to d. Stored player
// preferences win over authored values.
func ReloadVolumes(d VolumeSetter, cfg settings.AudioConfig, prefs map[audio.Category]float64) []audio.Outcome {
	outcomes := make([]audio.Outcome, 0, len(cfg.Volumes))
	for _, v := range cfg.Volumes {
		category, err := audio.ParseCategory(v.Category)
		if err != nil {
			outcomes = append(outcomes, audio.Outcome{Item: v.Name, Err: err})
			continue
		}
		value := v.Volume
		if p, ok := prefs[category]; ok {
			value = p
		}
		outcomes = append(outcomes, audio.Outcome{Item: v.Name, Err: d.SetVolume(category, value)})
	}
	return outcomes
}
