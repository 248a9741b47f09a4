package meetings

// createRequest accepts JSON meeting creation. Form posts are decoded by
// hand in the handler because tags arrive as a JSON-encoded string there.
type createRequest struct {
	Title        string   `json:"title"`
	Provider     string   `json:"provider"`
	Date         string   `json:"date"`
	Owner        string   `json:"owner"`
	Tags         []string `json:"tags"`
	Participants []string `json:"participants"`
}

type patchRequest struct {
	Title        *string   `json:"title"`
	Provider     *string   `json:"provider"`
	Date         *string   `json:"date"`
	Owner        *string   `json:"owner"`
	Tags         *[]string `json:"tags"`
	Participants *[]string `json:"participants"`
}

type uploadURLRequest struct {
	FileName    string `json:"filename" form:"filename"`
	ContentType string `json:"contentType" form:"contentType"`
}

type recordingRequest struct {
	ObjectURI string `json:"objectUri" form:"objectUri"`
}

type noteRequest struct {
	Text string `json:"text" form:"text"`
}

type agendaRequest struct {
	Text string `json:"text" form:"text"`
}

type actionRequest struct {
	Title    string `json:"title" form:"title"`
	Assignee string `json:"assignee" form:"assignee"`
	Due      string `json:"due" form:"due"`
}

type actionPatchRequest struct {
	Title    *string `json:"title"`
	Done     *bool   `json:"done"`
	Assignee *string `json:"assignee"`
	Due      *string `json:"due"`
}

type insightsEditRequest struct {
	Summary          *string            `json:"summary"`
	Chapters         *[]Chapter         `json:"chapters"`
	Highlights       *[]Highlight       `json:"highlights"`
	KeyQuestions     *[]string          `json:"keyQuestions"`
	ExtractedActions *[]ExtractedAction `json:"extractedActions"`
}
