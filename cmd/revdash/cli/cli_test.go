package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/revenue-dashboard/revenue-dashboard/internal/imports"
	"github.com/revenue-dashboard/revenue-dashboard/jobs"
)

type stubImporter struct {
	rows     []imports.RawRow
	filename string
	result   imports.Result
	err      error
}

func (s *stubImporter) ImportRows(ctx context.Context, rows []imports.RawRow, filename string) (imports.Result, error) {
	s.rows = rows
	s.filename = filename
	return s.result, s.err
}

const sampleCSV = "Periodo;Cliente;Mandante;Importo\n2024-01;Bar Roma;Cantine Aurora;1.500,50\n\n2024-02;Bar Roma;Cantine Aurora;200\n"

func TestImportCommandJSONSuccess(t *testing.T) {
	importer := &stubImporter{result: imports.Result{BatchID: uuid.New(), Stats: imports.Stats{Total: 2, Success: 2}}}
	cli, err := NewImportCLI(importer)
	require.NoError(t, err)

	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	exitCode := cli.ImportCommand(context.Background(), ImportOptions{
		Reader:     strings.NewReader(sampleCSV),
		Filename:   "gennaio.csv",
		JSONOutput: true,
		Stdout:     stdout,
		Stderr:     stderr,
	})
	require.Zero(t, exitCode)
	require.Empty(t, stderr.String())
	require.Equal(t, "gennaio.csv", importer.filename)
	require.Len(t, importer.rows, 2)
	require.Equal(t, "Bar Roma", importer.rows[0].ClientName)

	var result imports.Result
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &result))
	require.Equal(t, 2, result.Stats.Success)
}

func TestImportCommandReadsFileAndReportsRowErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "upload.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o600))

	importer := &stubImporter{result: imports.Result{
		Stats:       imports.Stats{Total: 2, Success: 1, Errors: 1},
		ErrorReport: []imports.RowError{{Row: 3, Error: "invalid amount"}},
	}}
	cli, err := NewImportCLI(importer)
	require.NoError(t, err)

	stdout := new(bytes.Buffer)
	exitCode := cli.ImportCommand(context.Background(), ImportOptions{File: path, Stdout: stdout, Stderr: new(bytes.Buffer)})
	require.Equal(t, 10, exitCode)
	require.Equal(t, "upload.csv", importer.filename)
	require.Contains(t, stdout.String(), "errors: 1")
	require.Contains(t, stdout.String(), "row 3: invalid amount")
}

func TestImportCommandFailures(t *testing.T) {
	cli, err := NewImportCLI(&stubImporter{err: errors.New("database unavailable")})
	require.NoError(t, err)

	stderr := new(bytes.Buffer)
	require.Equal(t, 1, cli.ImportCommand(context.Background(), ImportOptions{Stdout: new(bytes.Buffer), Stderr: stderr}))
	require.Contains(t, stderr.String(), "-file is required")

	stderr.Reset()
	require.Equal(t, 1, cli.ImportCommand(context.Background(), ImportOptions{Reader: strings.NewReader(""), Stdout: new(bytes.Buffer), Stderr: stderr}))
	require.Contains(t, stderr.String(), "parse stdin.csv")

	stderr.Reset()
	require.Equal(t, 1, cli.ImportCommand(context.Background(), ImportOptions{Reader: strings.NewReader(sampleCSV), Stdout: new(bytes.Buffer), Stderr: stderr}))
	require.Contains(t, stderr.String(), "database unavailable")

	_, err = NewImportCLI(nil)
	require.Error(t, err)
}

type recordingEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (r *recordingEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	r.tasks = append(r.tasks, task)
	return &asynq.TaskInfo{ID: "t"}, r.err
}

func (r *recordingEnqueuer) Close() error { return nil }

type stubQueue struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubQueue) GetQueueInfo(queue string) (*asynq.QueueInfo, error) {
	return s.info, s.err
}

func TestJobsCommandTrigger(t *testing.T) {
	enq := &recordingEnqueuer{}
	cli := newJobsCLIWith(enq, stubQueue{})

	stdout := new(bytes.Buffer)
	exitCode := cli.JobsCommand(context.Background(), JobsOptions{Action: "trigger", Years: "2024, 2023", Stdout: stdout, Stderr: new(bytes.Buffer)})
	require.Zero(t, exitCode)
	require.Contains(t, stdout.String(), jobs.TaskAnalyticsWarmup)
	require.Len(t, enq.tasks, 1)
	require.JSONEq(t, `{"years":[2023,2024]}`, string(enq.tasks[0].Payload()))

	exitCode = cli.JobsCommand(context.Background(), JobsOptions{Action: "trigger", Task: jobs.TaskIdempotencyCleanup, Stdout: stdout, Stderr: new(bytes.Buffer)})
	require.Zero(t, exitCode)
	require.Equal(t, jobs.TaskIdempotencyCleanup, enq.tasks[1].Type())

	stderr := new(bytes.Buffer)
	require.Equal(t, 1, cli.JobsCommand(context.Background(), JobsOptions{Action: "trigger", Task: "unknown", Stdout: stdout, Stderr: stderr}))
	require.Contains(t, stderr.String(), "unsupported job")

	stderr.Reset()
	require.Equal(t, 1, cli.JobsCommand(context.Background(), JobsOptions{Action: "trigger", Years: "20x4", Stdout: stdout, Stderr: stderr}))
	require.Contains(t, stderr.String(), "invalid year")
}

func TestJobsCommandInspect(t *testing.T) {
	cli := newJobsCLIWith(&recordingEnqueuer{}, stubQueue{info: &asynq.QueueInfo{Queue: jobs.QueueDefault, Pending: 3, Retry: 1}})

	stdout := new(bytes.Buffer)
	require.Zero(t, cli.JobsCommand(context.Background(), JobsOptions{Action: "inspect", JSONOutput: true, Stdout: stdout, Stderr: new(bytes.Buffer)}))
	var stats QueueStats
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &stats))
	require.Equal(t, QueueStats{Queue: jobs.QueueDefault, Pending: 3, Retry: 1}, stats)

	broken := newJobsCLIWith(&recordingEnqueuer{}, stubQueue{err: errors.New("no redis")})
	stderr := new(bytes.Buffer)
	require.Equal(t, 1, broken.JobsCommand(context.Background(), JobsOptions{Action: "inspect", Stdout: stdout, Stderr: stderr}))
	require.Contains(t, stderr.String(), "no redis")

	require.Equal(t, 2, cli.JobsCommand(context.Background(), JobsOptions{Action: "purge", Stdout: stdout, Stderr: stderr}))
}
