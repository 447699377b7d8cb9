// Command narration_generator synthesizes audio for the I Do story segments
// of every catalog module, uploads the mp3s to object storage and records
// them in module_narrations.
package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"github.com/spf13/cobra"
	texttospeechpb "google.golang.org/genproto/googleapis/cloud/texttospeech/v1"

	"learnstream/internal/catalog"
	"learnstream/internal/config"
	"learnstream/internal/database"
	"learnstream/internal/logger"
	"learnstream/internal/models"
	"learnstream/internal/storage"
)

var force bool

var rootCmd = &cobra.Command{
	Use:          "narration_generator",
	Short:        "Generate narration audio for I Do stories",
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().BoolVar(&force, "force", false, "regenerate segments that already have audio")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// job is one story segment to narrate.
type job struct {
	ModuleID string
	Segment  int
	Text     string
}

func (j job) key() string {
	return fmt.Sprintf("narration/%s/%d.mp3", j.ModuleID, j.Segment)
}

// synthesizeFunc turns text into mp3 bytes.
type synthesizeFunc func(ctx context.Context, text string) ([]byte, error)

func run(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.NewToolsConfig()
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return err
	}
	defer log.Sync()

	db, err := database.Connect(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer db.Close()

	objects, err := storage.Dial(ctx, cfg.Storage)
	if err != nil {
		return err
	}

	// Credentials come from GOOGLE_APPLICATION_CREDENTIALS.
	client, err := texttospeech.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("failed to create TTS client: %w", err)
	}
	defer client.Close()
	log.Info("connected to TTS API", "voice", cfg.TTS.VoiceName)

	cat, err := catalog.Default()
	if err != nil {
		return err
	}
	narrations := database.NewNarrationRepository(db)

	// module_narrations references content_modules, so rows must exist
	// before any audio is paid for.
	if err := materialize(ctx, cat.List(), database.NewModuleRepository(db)); err != nil {
		return err
	}
	jobs, err := plan(ctx, cat.List(), narrations, objects, force)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		log.Info("every segment already has audio")
		return nil
	}
	log.Info("segments to narrate", "count", len(jobs), "workers", cfg.TTS.Workers)

	synth := googleSynthesizer(client, cfg.TTS)
	done, failed := generate(ctx, jobs, cfg.TTS, synth, objects, narrations, log)
	log.Info("generation finished", "done", done, "failed", failed)
	if failed > 0 {
		return fmt.Errorf("%d segments failed", failed)
	}
	return nil
}

func materialize(ctx context.Context, modules []models.ContentModule, store models.ModuleStore) error {
	for _, m := range modules {
		if _, err := store.Ensure(ctx, m); err != nil {
			return fmt.Errorf("module %s: %w", m.ID, err)
		}
	}
	return nil
}

// plan lists the segments that still need audio. A recorded segment whose
// object has gone missing is planned again.
func plan(ctx context.Context, modules []models.ContentModule, narrations models.NarrationStore, objects models.ObjectStorage, force bool) ([]job, error) {
	var jobs []job
	for _, m := range modules {
		for i, seg := range m.Content.IDoStory {
			j := job{ModuleID: m.ID, Segment: i, Text: seg.Content}
			if !force {
				done, err := narrated(ctx, j, narrations, objects)
				if err != nil {
					return nil, err
				}
				if done {
					continue
				}
			}
			jobs = append(jobs, j)
		}
	}
	return jobs, nil
}

func narrated(ctx context.Context, j job, narrations models.NarrationStore, objects models.ObjectStorage) (bool, error) {
	n, err := narrations.Get(ctx, j.ModuleID, j.Segment)
	if errors.Is(err, models.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return objects.Exists(ctx, n.ObjectKey)
}

// generate runs cfg.Workers workers over jobs and reports how many
// succeeded and failed.
func generate(ctx context.Context, jobs []job, cfg config.TTS, synth synthesizeFunc, objects models.ObjectStorage, narrations models.NarrationStore, log *logger.Logger) (int, int) {
	queue := make(chan job, len(jobs))
	results := make(chan error, len(jobs))
	var wg sync.WaitGroup

	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go worker(ctx, &wg, cfg.Pause, synth, objects, narrations, log, queue, results)
	}

	for _, j := range jobs {
		queue <- j
	}
	close(queue)

	wg.Wait()
	close(results)

	done, failed := 0, 0
	for err := range results {
		if err != nil {
			failed++
		} else {
			done++
		}
	}
	return done, failed
}

func worker(ctx context.Context, wg *sync.WaitGroup, pause time.Duration, synth synthesizeFunc, objects models.ObjectStorage, narrations models.NarrationStore, log *logger.Logger, queue <-chan job, results chan<- error) {
	defer wg.Done()

	for j := range queue {
		if ctx.Err() != nil {
			results <- ctx.Err()
			continue
		}

		err := narrate(ctx, j, synth, objects, narrations)
		if err != nil {
			log.Error("segment failed", "module_id", j.ModuleID, "segment", j.Segment, "error", err)
		} else {
			log.Info("segment narrated", "module_id", j.ModuleID, "segment", j.Segment, "key", j.key())
		}
		results <- err

		// The free TTS quota allows about 1000 requests a minute.
		select {
		case <-ctx.Done():
		case <-time.After(pause):
		}
	}
}

func narrate(ctx context.Context, j job, synth synthesizeFunc, objects models.ObjectStorage, narrations models.NarrationStore) error {
	audio, err := synth(ctx, j.Text)
	if err != nil {
		return fmt.Errorf("synthesize: %w", err)
	}
	if err := objects.Upload(ctx, j.key(), bytes.NewReader(audio), int64(len(audio)), "audio/mpeg"); err != nil {
		return err
	}
	if err := narrations.Upsert(ctx, models.Narration{ModuleID: j.ModuleID, SegmentIndex: j.Segment, ObjectKey: j.key()}); err != nil {
		if rmErr := objects.Remove(ctx, j.key()); rmErr != nil {
			return errors.Join(err, rmErr)
		}
		return err
	}
	return nil
}

func googleSynthesizer(client *texttospeech.Client, cfg config.TTS) synthesizeFunc {
	return func(ctx context.Context, text string) ([]byte, error) {
		req := &texttospeechpb.SynthesizeSpeechRequest{
			Input: &texttospeechpb.SynthesisInput{
				InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
			},
			Voice: &texttospeechpb.VoiceSelectionParams{
				LanguageCode: cfg.LanguageCode,
				SsmlGender:   texttospeechpb.SsmlVoiceGender_FEMALE,
				Name:         cfg.VoiceName,
			},
			AudioConfig: &texttospeechpb.AudioConfig{
				AudioEncoding: texttospeechpb.AudioEncoding_MP3,
			},
		}

		resp, err := client.SynthesizeSpeech(ctx, req)
		if err != nil {
			return nil, err
		}
		return resp.AudioContent, nil
	}
}
