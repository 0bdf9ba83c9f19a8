package deployer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"emojipress/config"
	"emojipress/tools"
)

// Runner runs commands, optionally inside a directory
type Runner interface {
	tools.Runner
	tools.DirRunner
}

// Deployer publishes the output directory after a run
type Deployer struct {
	cfg    config.DeployConfig
	runner Runner
	logger *zap.Logger
	now    func() time.Time
}

// NewDeployer creates a new deployer
func NewDeployer(cfg config.DeployConfig, runner Runner, logger *zap.Logger) *Deployer {
	return &Deployer{cfg: cfg, runner: runner, logger: logger, now: time.Now}
}

// Deploy runs the configured publishing steps for outputDir
func (d *Deployer) Deploy(ctx context.Context, outputDir string) error {
	if !d.cfg.Enabled {
		return nil
	}

	d.logger.Info("starting deployment", zap.String("dir", outputDir))

	// 1. Git commit (and push) the converted assets
	if d.cfg.Git.AutoCommit {
		if err := d.gitCommit(ctx, outputDir); err != nil {
			return fmt.Errorf("failed to git commit: %w", err)
		}
	}

	// 2. Rsync to the target host
	if d.cfg.RsyncTarget != "" {
		if err := d.rsync(ctx, outputDir); err != nil {
			return fmt.Errorf("failed to rsync: %w", err)
		}
	}

	d.logger.Info("deployment complete")
	return nil
}

// RsyncArgs builds the rsync command line for outputDir
func (d *Deployer) RsyncArgs(outputDir string) []string {
	args := strings.Fields(d.cfg.RsyncOpts)
	args = append(args, "--exclude", ".git")

	if d.cfg.SSHKey != "" {
		args = append(args, "-e", fmt.Sprintf("ssh -i %s", d.cfg.SSHKey))
	}

	// Trailing slash syncs the contents, not the directory itself
	return append(args, strings.TrimRight(outputDir, "/")+"/", d.cfg.RsyncTarget)
}

func (d *Deployer) rsync(ctx context.Context, outputDir string) error {
	if err := d.runner.Run(ctx, "rsync", d.RsyncArgs(outputDir)...); err != nil {
		return err
	}
	d.logger.Info("synced", zap.String("target", d.cfg.RsyncTarget))
	return nil
}

// gitCommit commits outputDir, initialising the repository on first use
func (d *Deployer) gitCommit(ctx context.Context, outputDir string) error {
	if _, err := os.Stat(filepath.Join(outputDir, ".git")); os.IsNotExist(err) {
		if err := d.runner.RunIn(ctx, outputDir, "git", "init"); err != nil {
			return err
		}
	}

	if err := d.runner.RunIn(ctx, outputDir, "git", "add", "."); err != nil {
		return err
	}

	// Exit status 0 means nothing is staged
	if err := d.runner.RunIn(ctx, outputDir, "git", "diff", "--cached", "--quiet"); err == nil {
		d.logger.Info("no changes to commit")
		return nil
	}

	msg := fmt.Sprintf("Compress emoji: %s", d.now().Format("2006-01-02 15:04:05"))
	if err := d.runner.RunIn(ctx, outputDir, "git", "commit", "-m", msg); err != nil {
		return err
	}

	if d.cfg.Git.Push {
		if err := d.runner.RunIn(ctx, outputDir, "git", "push", d.cfg.Git.Remote, "HEAD"); err != nil {
			return err
		}
		d.logger.Info("pushed", zap.String("remote", d.cfg.Git.Remote))
	}
	return nil
}
