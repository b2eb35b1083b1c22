package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/yeti47/eight/composition"
	"github.com/yeti47/eight/editing"
	"github.com/yeti47/eight/faults"
	"github.com/yeti47/eight/publishing"
	"github.com/yeti47/eight/store"
	"github.com/yeti47/eight/uploading"
)

var editFlags struct {
	start     float64
	end       float64
	text      string
	color     string
	align     string
	posX      float64
	posY      float64
	fontSize  float64
	publish   bool
	caption   string
	parentID  string
	keepInput bool
}

var editCmd = &cobra.Command{
	Use:   "edit <file>",
	Short: "Trim a recording, burn in a caption and optionally publish it",
	Long: "Loads a recorded clip, applies the trim range and caption, and exports the final clip. " +
		"With --publish the result is uploaded with a thumbnail and recorded in the video store.",
	Args: cobra.ExactArgs(1),
	RunE: runEdit,
}

func init() {
	f := editCmd.Flags()
	f.Float64Var(&editFlags.start, "start", -1, "Trim start in seconds (default: start of clip)")
	f.Float64Var(&editFlags.end, "end", -1, "Trim end in seconds (default: end of clip or the maximum duration)")
	f.StringVar(&editFlags.text, "text", "", "Caption burnt into the clip")
	f.StringVar(&editFlags.color, "color", "white", "Caption color: white, black, red, blue, yellow or green")
	f.StringVar(&editFlags.align, "align", "center", "Caption alignment: left, center or right")
	f.Float64Var(&editFlags.posX, "x", 0.5, "Caption anchor x, 0 (left) to 1 (right)")
	f.Float64Var(&editFlags.posY, "y", 0.5, "Caption anchor y, 0 (bottom) to 1 (top)")
	f.Float64Var(&editFlags.fontSize, "font-size", composition.DefaultFontSize, "Caption font size")
	f.BoolVar(&editFlags.publish, "publish", false, "Publish the exported clip")
	f.StringVar(&editFlags.caption, "caption", "", "Description stored with the published clip")
	f.StringVar(&editFlags.parentID, "reply-to", "", "Publish as a response to this video id")
	f.BoolVar(&editFlags.keepInput, "keep-input", false, "Keep the recording after publishing")
}

func runEdit(cmd *cobra.Command, args []string) error {
	source := args[0]

	a, err := newApp("edit", flags.overrides())
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	editor := a.newEditor(progressPrinter(out))

	if err := editor.Load(ctx, source); err != nil {
		return fmt.Errorf("%s: %w", faults.Message(err), err)
	}

	if cmd.Flags().Changed("start") || cmd.Flags().Changed("end") {
		current := editor.Status().Trim
		requested := current
		if editFlags.start >= 0 {
			requested.Start = editFlags.start
		}
		if editFlags.end >= 0 {
			requested.End = editFlags.end
		}
		applied := editor.SetTrimRange(requested)
		if applied != requested {
			fmt.Fprintf(out, "Trim adjusted to %.2fs - %.2fs\n", applied.Start, applied.End)
		}
	}

	if editFlags.text != "" {
		overlay, err := overlayFromFlags()
		if err != nil {
			return err
		}
		editor.SetTextOverlay(&overlay)
	}

	output, err := editor.Export(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", faults.Message(err), err)
	}
	fmt.Fprintf(out, "\nExported %s\n", output)

	if !editFlags.publish {
		return nil
	}

	req := publishing.Request{
		VideoPath:      output,
		EditedText:     editor.EditedText(),
		TransientFiles: []string{output},
	}
	if editFlags.caption != "" {
		req.Caption = &editFlags.caption
	}
	if editFlags.parentID != "" {
		req.ParentVideoID = &editFlags.parentID
	}
	if !editFlags.keepInput {
		req.TransientFiles = append(req.TransientFiles, source)
	}
	return publish(a, out, req)
}

// publish runs the job through the upload queue and waits for it to finish
func publish(a *app, out io.Writer, req publishing.Request) error {
	queue, db, err := a.newPublishQueue()
	if err != nil {
		return err
	}
	defer db.Close()

	var published *store.VideoRecord
	stopChan := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go queue.Start(stopChan, &wg, func(_ *uploading.PublishJob, video *store.VideoRecord) {
		published = video
	})

	if !queue.Queue(&uploading.PublishJob{Request: req}) {
		close(stopChan)
		wg.Wait()
		return errors.New("publish queue is full")
	}
	close(stopChan)
	wg.Wait()

	if published == nil {
		return fmt.Errorf("publishing failed; the exported clip was kept at %s", req.VideoPath)
	}
	fmt.Fprintf(out, "Published %s\n  video:     %s\n  thumbnail: %s\n", published.ID, published.VideoURL, published.ThumbnailURL)
	return nil
}

func overlayFromFlags() (composition.TextOverlay, error) {
	color, err := composition.ParseTextColor(editFlags.color)
	if err != nil {
		return composition.TextOverlay{}, err
	}
	align, err := composition.ParseAlignment(editFlags.align)
	if err != nil {
		return composition.TextOverlay{}, err
	}
	overlay := composition.NewTextOverlay()
	overlay.Text = editFlags.text
	overlay.Color = color
	overlay.Alignment = align
	overlay.PositionX = editFlags.posX
	overlay.PositionY = editFlags.posY
	overlay.FontSize = editFlags.fontSize
	return overlay.Normalized(), nil
}

// progressPrinter redraws a single progress line while an export runs
func progressPrinter(out io.Writer) func(editing.Status) {
	var lastDraw time.Time
	return func(st editing.Status) {
		if !st.Exporting {
			return
		}
		if time.Since(lastDraw) < 200*time.Millisecond && st.Progress < 1 {
			return
		}
		lastDraw = time.Now()
		fmt.Fprintf(out, "\rExporting... %3.0f%%", st.Progress*100)
	}
}
