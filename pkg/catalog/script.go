package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/OpenTasmania/oj-server-sub001/pkg/engine"
	"github.com/OpenTasmania/oj-server-sub001/pkg/telemetry"
)

// ScriptProvisioner executes per-component shell scripts laid out as
// <root>/<component>/{install,uninstall,check}.sh. The check script's
// exit code is the probe result: zero means installed, one means not
// installed, anything else is a probe failure.
type ScriptProvisioner struct {
	root   string
	logger *telemetry.Logger
}

var _ Provisioner = (*ScriptProvisioner)(nil)

// NewScriptProvisioner creates a provisioner rooted at dir.
func NewScriptProvisioner(dir string, logger *telemetry.Logger) *ScriptProvisioner {
	if logger == nil {
		logger, _ = telemetry.NewLogger(telemetry.LoggingConfig{Level: "info", Format: "json", Output: "stderr"})
	}
	return &ScriptProvisioner{root: dir, logger: logger.NewComponentLogger("provisioner")}
}

func (p *ScriptProvisioner) script(component, action string) string {
	return filepath.Join(p.root, component, action+".sh")
}

func (p *ScriptProvisioner) run(ctx context.Context, run *engine.ExecutionContext, component, action string) error {
	path := p.script(component, action)
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("no %s script for %s: %w", action, component, err)
	}

	cmd := exec.CommandContext(ctx, path)
	cmd.Env = append(os.Environ(),
		"OJ_RUN_ID="+run.RunID,
		"OJ_RUN_MODE="+string(run.Mode),
		fmt.Sprintf("OJ_PURGE=%t", run.Purge),
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		p.logger.WithField("component", component).
			WithField("action", action).
			WithError(err).
			Errorf("script failed: %s", string(out))
		return fmt.Errorf("%s %s: %w", action, component, err)
	}
	p.logger.WithField("component", component).Debugf("%s script succeeded", action)
	return nil
}

// Install runs the component's install script.
func (p *ScriptProvisioner) Install(ctx context.Context, run *engine.ExecutionContext, component string) error {
	return p.run(ctx, run, component, "install")
}

// Uninstall runs the component's uninstall script.
func (p *ScriptProvisioner) Uninstall(ctx context.Context, run *engine.ExecutionContext, component string) error {
	return p.run(ctx, run, component, "uninstall")
}

// Installed runs the component's check script and interprets its exit
// code. A missing check script reports not installed.
func (p *ScriptProvisioner) Installed(ctx context.Context, run *engine.ExecutionContext, component string) (bool, error) {
	path := p.script(component, "check")
	if _, err := os.Stat(path); err != nil {
		return false, nil
	}

	cmd := exec.CommandContext(ctx, path)
	cmd.Env = append(os.Environ(), "OJ_RUN_ID="+run.RunID)
	err := cmd.Run()
	if err == nil {
		return true, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
		return false, nil
	}
	return false, fmt.Errorf("check %s: %w", component, err)
}
