package commands

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/brewplan/brewplan/pkg/remote"
	"github.com/brewplan/brewplan/pkg/telemetry"
)

func newPushCommand() *cobra.Command {
	var (
		host        string
		user        string
		port        int
		keyPath     string
		passwordEnv bool
		insecure    bool
		manifest    string
		remotePath  string
		activate    bool
	)

	cmd := &cobra.Command{
		Use:   "push",
		Short: "Push the compiled manifest to a remote host over SSH",
		Long: `Push the compiled Brewfile to a remote host over SFTP.

The upload is atomic: the manifest is written to a temporary file and
renamed into place, then verified against its SHA-256 checksum. With
--activate, 'brew bundle' is run on the remote host afterwards.`,
		Example: `  # Push ./Brewfile to a Mac on the network
  brewplan push --host mac-mini.local --user admin

  # Push and apply in one step
  brewplan push --host mac-mini.local --user admin --activate

  # Password authentication via environment
  BREWPLAN_SSH_PASSWORD=secret brewplan push --host 10.0.0.5 --user admin --password-env`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			content, err := os.ReadFile(manifest)
			if err != nil {
				return fmt.Errorf("failed to read manifest %s: %w", manifest, err)
			}
			sum := sha256.Sum256(content)
			checksum := hex.EncodeToString(sum[:])

			tel, err := telemetry.NewTelemetry(telemetry.DefaultConfig())
			if err != nil {
				return err
			}
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = tel.Shutdown(shutdownCtx)
			}()

			ctx, span := tel.Tracer.StartPushSpan(ctx, host, remotePath)
			defer span.End()
			timer := telemetry.NewTimer()

			// Push does not consult the ledger, so the manifest checksum
			// identifies the pushed generation in the event stream.
			fail := func(err error) error {
				telemetry.RecordError(span, err)
				tel.Metrics.RecordPush(host, "failed", timer.Duration())
				_ = tel.Events.PublishPushFailed(checksum, host, err.Error())
				return err
			}

			log.Info().
				Str("host", host).
				Str("user", user).
				Str("manifest", manifest).
				Str("remote_path", remotePath).
				Bool("activate", activate).
				Msg("Pushing manifest")

			cfg := remote.DefaultConfig(host, user)
			if port != 0 {
				cfg.Port = port
			}
			if keyPath != "" {
				cfg.PrivateKeyPath = keyPath
			}
			if passwordEnv {
				cfg.AuthMethod = remote.AuthMethodPassword
				cfg.Password = os.Getenv("BREWPLAN_SSH_PASSWORD")
			}
			if insecure {
				cfg.StrictHostKeyChecking = false
			}

			client, err := remote.NewClient(cfg, commandLogger())
			if err != nil {
				return fail(err)
			}
			if err := client.Connect(ctx); err != nil {
				return fail(err)
			}
			defer client.Disconnect()

			result, err := client.PushManifest(ctx, content, remotePath, 0o644)
			if err != nil {
				return fail(err)
			}

			if err := client.VerifyManifest(ctx, remotePath, checksum); err != nil {
				return fail(err)
			}

			telemetry.RecordSuccess(span)
			tel.Metrics.RecordPush(host, "completed", timer.Duration())
			_ = tel.Events.PublishPushCompleted(checksum, host, result.RemotePath)

			if jsonOutput {
				return printJSON(result)
			}
			fmt.Printf("✓ Pushed %s to %s:%s (%d bytes, sha256 %s)\n",
				manifest, host, result.RemotePath, result.BytesTransferred, result.Checksum[:12])

			if !activate {
				return nil
			}

			command := fmt.Sprintf("brew bundle --file='%s'", remotePath)
			fmt.Printf("Running on %s: %s\n", host, command)
			stdout, stderr, err := client.RunCommand(ctx, command)
			if stdout != "" {
				fmt.Print(stdout)
			}
			if stderr != "" {
				fmt.Fprint(os.Stderr, stderr)
			}
			if err != nil {
				return fmt.Errorf("remote activation failed: %w", err)
			}
			fmt.Printf("✓ Activated on %s\n", host)
			return nil
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "remote hostname or IP address")
	cmd.Flags().StringVar(&user, "user", "", "SSH username")
	cmd.Flags().IntVar(&port, "port", 0, "SSH port (default 22)")
	cmd.Flags().StringVar(&keyPath, "key", "", "private key path (default ~/.ssh/id_*)")
	cmd.Flags().BoolVar(&passwordEnv, "password-env", false, "use password auth from BREWPLAN_SSH_PASSWORD")
	cmd.Flags().BoolVar(&insecure, "insecure", false, "skip host key verification")
	cmd.Flags().StringVar(&manifest, "manifest", "Brewfile", "local manifest path")
	cmd.Flags().StringVar(&remotePath, "remote-path", "Brewfile", "remote manifest path")
	cmd.Flags().BoolVar(&activate, "activate", false, "run 'brew bundle' on the remote host after pushing")
	cmd.MarkFlagRequired("host")
	cmd.MarkFlagRequired("user")

	return cmd
}
