package presenter

import (
	"github.com/user/testpad_go/internal/state"
	"github.com/user/testpad_go/internal/viewstate"
)

// SaveState writes the session to the configured state file.
func (c *Coordinator) SaveState() error {
	if c.cfg.StateFile == "" {
		return nil
	}
	if err := state.Save(c.fs, c.cfg.StateFile, c.model); err != nil {
		c.log.WithError(err).WithField("path", c.cfg.StateFile).Error("Failed to save state")
		return err
	}
	c.log.WithField("path", c.cfg.StateFile).Debug("State saved")
	return nil
}

// RestoreState loads the state file into the session. A missing file keeps
// the empty session; an unreadable one is reported and also keeps it.
func (c *Coordinator) RestoreState() error {
	if c.cfg.StateFile == "" {
		return nil
	}
	log := c.log.WithField("path", c.cfg.StateFile)
	rec, ok, err := state.Load(c.fs, c.cfg.StateFile)
	if err != nil {
		log.WithError(err).Error("Failed to read saved state")
		c.notify(LevelWarning, "Restore State", "Saved data could not be read. "+userMessage(err))
		return err
	}
	if !ok {
		log.Debug("No saved state")
		return nil
	}
	snap, err := c.model.Restore(rec)
	if err != nil {
		log.WithError(err).Error("Failed to restore saved state")
		c.notify(LevelWarning, "Restore State", "Saved data could not be restored. "+userMessage(err))
		return err
	}
	c.view = viewstate.Build(snap)
	log.Info("State restored")
	return nil
}

// OnShow renders the current view state.
func (c *Coordinator) OnShow() {
	c.renderer.Render(c.view)
}

// OnClose cancels background work and waits for it to stop. Completions
// posted meanwhile still reach the dispatcher, so the shell drains them
// before calling SaveState.
func (c *Coordinator) OnClose() {
	c.cancelReport()
	c.jobs.CancelAll()
	c.jobs.Wait()
	c.log.Debug("Tab closed")
}
