package main

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/wailsapp/wails/v2/pkg/runtime"

	"github.com/user/testpad_go/internal/presenter"
	"github.com/user/testpad_go/internal/viewstate"
)

// Events emitted to the frontend.
const (
	eventViewState = "viewState"
	eventMessage   = "message"
	eventBusy      = "busy"
)

var csvFilters = []runtime.FileFilter{
	{DisplayName: "CSV Files (*.csv)", Pattern: "*.csv"},
	{DisplayName: "All Files (*.*)", Pattern: "*.*"},
}

// shell is the window side of the tab: it draws view states through Wails
// events and opens native dialogs. It is kept apart from App so none of
// these methods are bound to the frontend.
type shell struct {
	ctx context.Context
	log logrus.FieldLogger
}

func (s *shell) Render(vs viewstate.ViewState) {
	runtime.EventsEmit(s.ctx, eventViewState, vs)
}

func (s *shell) Notify(msg presenter.Message) {
	entry := s.log.WithFields(logrus.Fields{"level_ui": msg.Level.String(), "title": msg.Title})
	entry.Debug(msg.Text)
	runtime.EventsEmit(s.ctx, eventMessage, msg)
	if msg.Level == presenter.LevelError && msg.Title != "" {
		_, err := runtime.MessageDialog(s.ctx, runtime.MessageDialogOptions{
			Type:    runtime.ErrorDialog,
			Title:   msg.Title,
			Message: msg.Text,
		})
		if err != nil {
			s.log.WithError(err).Warn("Failed to show error dialog")
		}
	}
}

func (s *shell) SetBusy(label string) {
	runtime.EventsEmit(s.ctx, eventBusy, label)
}

func (s *shell) OpenFile(title string) (string, bool, error) {
	path, err := runtime.OpenFileDialog(s.ctx, runtime.OpenDialogOptions{Title: title, Filters: csvFilters})
	return path, err == nil && path != "", err
}

func (s *shell) SaveFile(title, suggested string) (string, bool, error) {
	path, err := runtime.SaveFileDialog(s.ctx, runtime.SaveDialogOptions{
		Title:           title,
		DefaultFilename: suggested,
		Filters:         csvFilters,
	})
	return path, err == nil && path != "", err
}

func (s *shell) SelectDirectory(title, current string) (string, bool, error) {
	path, err := runtime.OpenDirectoryDialog(s.ctx, runtime.OpenDialogOptions{
		Title:                title,
		DefaultDirectory:     current,
		CanCreateDirectories: true,
	})
	return path, err == nil && path != "", err
}

func (s *shell) Confirm(title, text string) bool {
	answer, err := runtime.MessageDialog(s.ctx, runtime.MessageDialogOptions{
		Type:          runtime.QuestionDialog,
		Title:         title,
		Message:       text,
		Buttons:       []string{"Yes", "No"},
		DefaultButton: "No",
		CancelButton:  "No",
	})
	if err != nil {
		s.log.WithError(err).Warn("Failed to show question dialog")
		return false
	}
	return answer == "Yes"
}
