package job

// Stage names a pipeline state.
type Stage string

const (
	StagePrepare   Stage = "prepare"
	StageProbe     Stage = "probe"
	StageTranscode Stage = "transcode"
	StageAuthor    Stage = "author"
	StageValidate  Stage = "validate"
	StageExport    Stage = "export"
	StageISO       Stage = "iso"
	StageDone      Stage = "done"
	StageFailed    Stage = "failed"
	StageCancelled Stage = "cancelled"
)

type band struct {
	start float64
	end   float64
}

var bands = map[Stage]band{
	StagePrepare:   {0, 2},
	StageProbe:     {2, 5},
	StageTranscode: {5, 80},
	StageAuthor:    {80, 88},
	StageValidate:  {88, 90},
	StageExport:    {90, 94},
	StageISO:       {94, 99},
	StageDone:      {100, 100},
}

// Band returns the percentage range owned by the stage. Terminal failure
// states own no band and report (0, 0).
func (s Stage) Band() (start, end float64) {
	b := bands[s]
	return b.start, b.end
}

// Terminal reports whether no further transitions follow.
func (s Stage) Terminal() bool {
	return s == StageDone || s == StageFailed || s == StageCancelled
}

// Pipeline lists the working stages in execution order.
func Pipeline() []Stage {
	return []Stage{StagePrepare, StageProbe, StageTranscode, StageAuthor, StageValidate, StageExport, StageISO}
}

func (s Stage) String() string { return string(s) }
