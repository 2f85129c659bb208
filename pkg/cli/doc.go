/*
Package cli provides the output and process helpers of the subtitler command.

Output Formatting:

Commands build a View, which pairs the raw value (encoded as JSON) with its
tables (rendered for terminals or written as CSV):

	format, err := cli.ParseOutputFormat(flagValue)
	if err != nil {
		return err
	}
	view := cli.ResultView(result)
	if err := cli.NewFormatter(format).FormatTo(os.Stdout, view); err != nil {
		return err
	}

Progress Reporting:

Batch commands report progress on stderr:

	progress := cli.NewProgressReporter(os.Stderr, "transcripts")
	progress.Start(int64(len(paths)))
	for i, path := range paths {
		apply(path)
		progress.Update(int64(i + 1))
	}
	progress.Finish()

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()
*/
package cli
