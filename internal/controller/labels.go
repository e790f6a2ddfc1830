package controller

import (
	"net/http"

	"github.com/sharetube/syncroom/internal/domain"
	"github.com/sharetube/syncroom/pkg/rest"
)

const defaultLang = "en"

var playbackStateLabels = map[string]map[domain.PlaybackState]string{
	"en": {
		domain.Stopped: "Stopped",
		domain.Playing: "Playing",
		domain.Paused:  "Paused",
	},
	"ru": {
		domain.Stopped: "Остановлено",
		domain.Playing: "Воспроизводится",
		domain.Paused:  "Пауза",
	},
}

type playbackStateLabel struct {
	State domain.PlaybackState `json:"state"`
	Label string               `json:"label"`
}

func (c controller) getPlaybackStates(w http.ResponseWriter, r *http.Request) {
	lang := r.URL.Query().Get("lang")
	labels, ok := playbackStateLabels[lang]
	if !ok {
		lang = defaultLang
		labels = playbackStateLabels[defaultLang]
	}

	states := domain.PlaybackStates()
	resp := make([]playbackStateLabel, 0, len(states))
	for _, state := range states {
		resp = append(resp, playbackStateLabel{State: state, Label: labels[state]})
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": resp, "lang": lang})
}
