// Package job drives one asynchronous server job from submission to a
// terminal state: it owns the polling loop, translates server status
// strings through a closed per-kind table, and publishes monotonic
// progress snapshots to an observer callback.
package job

// PercentSource selects where a status mapping takes its stage-local
// percent from.
type PercentSource int

const (
	// PercentFixed uses the mapping's Fixed value.
	PercentFixed PercentSource = iota
	// PercentReported derives the percent from the poll response's
	// counters (percentage, completed/total or translated/total pages).
	PercentReported
)

// Mapping places one server status string on the stage model.
type Mapping struct {
	StageIndex int
	Source     PercentSource
	Fixed      float64
	// Terminal marks completed/failed style statuses; StageIndex and
	// percent are ignored for them.
	Terminal bool
	// Failed distinguishes the failure terminal from success.
	Failed bool
}

// StatusMap is the closed set of server statuses one job kind can
// report. Statuses absent from the map leave the previous snapshot
// untouched, so a newer server never breaks an older client.
type StatusMap map[string]Mapping

// ChapterUploadStatuses maps the chapter upload endpoint's statuses
// onto progress.ChapterUploadModel. Stage 0 (file transfer) is driven
// locally by the request body writer, never by the server.
var ChapterUploadStatuses = StatusMap{
	"started":   {StageIndex: 1, Source: PercentFixed, Fixed: 0},
	"uploading": {StageIndex: 1, Source: PercentReported},
	"completed": {Terminal: true},
	"failed":    {Terminal: true, Failed: true},
}

// TranslationStatuses maps the translation endpoint's statuses onto
// progress.TranslationModel. The extraction phase reports no counters,
// so it pins the stage halfway until translation begins.
var TranslationStatuses = StatusMap{
	"started":     {StageIndex: 1, Source: PercentFixed, Fixed: 0},
	"uploading":   {StageIndex: 0, Source: PercentFixed, Fixed: 50},
	"extracting":  {StageIndex: 1, Source: PercentFixed, Fixed: 50},
	"processing":  {StageIndex: 1, Source: PercentFixed, Fixed: 50},
	"translating": {StageIndex: 2, Source: PercentReported},
	"completed":   {Terminal: true},
	"failed":      {Terminal: true, Failed: true},
}

// PublishStatuses maps the publish job's statuses onto
// progress.PublishModel.
var PublishStatuses = StatusMap{
	"publishing": {StageIndex: 1, Source: PercentReported},
	"published":  {Terminal: true},
	"failed":     {Terminal: true, Failed: true},
}
