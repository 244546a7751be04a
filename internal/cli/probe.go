package cli

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vocallocal/robust-chunker/internal/format"
)

// ProbeCmd creates the probe command, which reports source metadata and the
// chunk count a run would produce, without calling any backend.
func ProbeCmd(env *Env) *cobra.Command {
	var chunkSeconds float64

	cmd := &cobra.Command{
		Use:   "probe <audio-file>",
		Short: "Inspect an audio file without transcribing it",
		Example: `  chunker probe lecture.mp3
  chunker probe meeting.ogg --chunk-seconds 120`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProbe(cmd, env, args[0], chunkSeconds)
		},
	}

	cmd.Flags().Float64Var(&chunkSeconds, "chunk-seconds", 300, "Chunk length used for the chunk count estimate")

	return cmd
}

func runProbe(cmd *cobra.Command, env *Env, inputPath string, chunkSeconds float64) error {
	ctx := cmd.Context()

	info, err := os.Stat(inputPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, inputPath)
		}
		return fmt.Errorf("cannot access input file: %w", err)
	}
	if chunkSeconds <= 0 {
		return fmt.Errorf("%w: chunk seconds must be positive, got %v",
			ErrInvalidConfiguration, chunkSeconds)
	}

	ffmpegPath, err := env.FFmpegResolver.Resolve()
	if err != nil {
		return err
	}
	prober, err := env.ProberFactory.NewProber(ffmpegPath)
	if err != nil {
		return err
	}

	source, err := prober.Probe(ctx, inputPath)
	if err != nil {
		return err
	}

	chunks := int(math.Ceil(source.Duration.Seconds() / chunkSeconds))
	chunkDuration := time.Duration(chunkSeconds * float64(time.Second))

	fmt.Fprintf(env.Stdout, "File:        %s\n", source.Path)
	fmt.Fprintf(env.Stdout, "Size:        %s\n", format.Size(info.Size()))
	fmt.Fprintf(env.Stdout, "Duration:    %s (%s)\n",
		format.Duration(source.Duration), format.DurationHuman(source.Duration))
	if source.SampleRate > 0 {
		fmt.Fprintf(env.Stdout, "Sample rate: %d Hz\n", source.SampleRate)
	}
	if source.Channels > 0 {
		fmt.Fprintf(env.Stdout, "Channels:    %d\n", source.Channels)
	}
	fmt.Fprintf(env.Stdout, "Chunks:      %d at %s each\n",
		chunks, format.Duration(chunkDuration))
	return nil
}
