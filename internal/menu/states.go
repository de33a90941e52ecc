package menu

import (
	"fmt"

	"cyclone-engine/internal/audio"
	"cyclone-engine/internal/widgets"
)

// Menu states
const (
	MenuInit = iota
	MenuSoundTest
	MenuVolume
	MenuPaused
	MenuExitDlg
	MenuExit
)

// Region states using iota for better Go practices
const (
	MenuDefault = iota
	MenuMouseOver
	MenuDisable
	MenuSelected
	MenuSelectedMouse
)

// StateInfo provides metadata about menu states
type StateInfo struct {
	Name        string
	Description string
}

// GetStateInfo returns information about a menu state
func GetStateInfo(state int) StateInfo {
	switch state {
	case MenuInit:
		return StateInfo{"INIT", "Initialization"}
	case MenuSoundTest:
		return StateInfo{"SOUND_TEST", "Clip browser"}
	case MenuVolume:
		return StateInfo{"VOLUME", "Volume settings"}
	case MenuPaused:
		return StateInfo{"PAUSED", "Pause dialog"}
	case MenuExitDlg:
		return StateInfo{"EXIT_DLG", "Exit confirmation"}
	case MenuExit:
		return StateInfo{"EXIT", "Shutting down"}
	default:
		return StateInfo{"UNKNOWN", "Unknown state"}
	}
}

// nextMenuState advances out of the init state.
func (m *Manager) nextMenuState() {
	prevState := m.state
	if m.state == MenuInit {
		m.state = MenuSoundTest
		m.showSoundTest()
	}
	if prevState != m.state {
		m.log.Debugf("Menu state changed: %s -> %s", GetStateInfo(prevState).Name, GetStateInfo(m.state).Name)
	}
}

// prevState goes back to the previous menu state
func (m *Manager) prevState() {
	switch m.state {
	case MenuVolume:
		m.savePrefs()
		m.changeToState(MenuSoundTest)
	case MenuPaused:
		m.paused = false
		m.applySnapshot(m.resume)
		m.changeToState(MenuSoundTest)
	case MenuExitDlg:
		if m.paused {
			m.changeToState(MenuPaused)
		} else {
			m.changeToState(MenuSoundTest)
		}
	}
}

// changeToState immediately changes to a new state
func (m *Manager) changeToState(newState int) {
	m.log.Debugf("Changing menu state from %s to %s", GetStateInfo(m.state).Name, GetStateInfo(newState).Name)
	m.state = newState
	m.dlgActive = false
	m.selected = -1

	switch newState {
	case MenuSoundTest:
		m.showSoundTest()
	case MenuVolume:
		m.showVolume()
	case MenuPaused:
		if !m.paused {
			m.paused = true
			m.applySnapshot(m.pause)
		}
		m.showDialog("Paused", "Resume", ActionResume, "Quit", ActionExit)
	case MenuExitDlg:
		m.showDialog("Quit the sound test?", "Yes", ActionConfirm, "No", ActionCancel)
	case MenuExit:
		m.clearRegions()
		m.driver.StopAll()
		m.tracked = m.tracked[:0]
		m.log.Info("Exit requested")
	}
}

func (m *Manager) applySnapshot(s *audio.Snapshot) {
	if s == nil {
		return
	}
	m.driver.ApplySnapshot(s)
}

// showSoundTest lays out one button per clip and the playback controls.
func (m *Manager) showSoundTest() {
	m.clearRegions()

	rowHeight := min(rowHeightMax, columnSpan/float64(max(1, len(m.clips))))
	for i, clip := range m.clips {
		y1 := columnTop + float64(i)*rowHeight
		r := m.newRegion(leftColumn, y1, leftColumnEnd, y1+rowHeight*rowFill, clipLabel(clip), ActionClip)
		r.Clip = clip
		if clip.Sound == nil {
			r.State = MenuDisable
		}
	}

	controls := []struct {
		label  string
		action int
	}{
		{"Pitch -", ActionPitchDown},
		{"Pitch +", ActionPitchUp},
		{"Spawn tracked", ActionSpawn},
		{"Release tracked", ActionRelease},
		{"Stop all", ActionStopAll},
		{"Pause", ActionPause},
		{"Volume", ActionVolume},
		{"Exit", ActionExit},
	}
	for i, c := range controls {
		y1 := columnTop + float64(i)*rowHeightMax
		r := m.newRegion(rightColumn, y1, rightColumnEnd, y1+rowHeightMax*rowFill, c.label, c.action)
		if m.trackedClip == nil && (c.action == ActionSpawn || c.action == ActionRelease) {
			r.State = MenuDisable
		}
		if m.pause == nil && c.action == ActionPause {
			r.State = MenuDisable
		}
	}
	m.refreshRegions()
}

// showVolume lays out one slider per configured category.
func (m *Manager) showVolume() {
	m.clearRegions()
	m.sliders = m.sliders[:0]

	for i, p := range m.driver.Volumes() {
		y1 := columnTop + float64(i)*rowHeightMax
		r := m.newRegion(sliderLeft, y1, sliderRight, y1+rowHeightMax*rowFill, p.Name, ActionSlider)

		slider := widgets.NewVolumeSlider(m.driver, p.Category, m.log)
		slider.OnChange = m.volumeChanged
		if err := slider.Init(); err != nil {
			r.State = MenuDisable
		}
		r.Slider = slider
		m.sliders = append(m.sliders, slider)
	}

	y1 := columnTop + float64(len(m.sliders))*rowHeightMax + rowHeightMax
	m.newRegion(sliderLeft, y1, sliderLeft+0.2, y1+rowHeightMax*rowFill, "Back", ActionBack)
}

// showDialog shows a two button dialog over the current page.
func (m *Manager) showDialog(title, yes string, yesAction int, no string, noAction int) {
	m.dlgActive = true
	m.dlgTitle = title
	m.dlgRegions[0] = m.newButton(0.3, 0.5, 0.48, 0.58, yes, yesAction)
	m.dlgRegions[1] = m.newButton(0.52, 0.5, 0.7, 0.58, no, noAction)
}

func (m *Manager) volumeChanged(category audio.Category, v float64) {
	if m.prefs == nil {
		return
	}
	m.prefs.SetVolume(category, v)
	m.prefsDirty = true
}

func (m *Manager) savePrefs() {
	if !m.prefsDirty || m.prefs == nil || m.prefsFile == "" {
		return
	}
	if err := m.prefs.Save(m.prefsFile); err != nil {
		m.log.Warnf("Failed to save volume preferences: %v", err)
		return
	}
	m.prefsDirty = false
}

func clipLabel(clip *audio.Clip) string {
	if clip.Loop {
		return fmt.Sprintf("%s (loop)", clip.Name)
	}
	return clip.Name
}
