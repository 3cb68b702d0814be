package types

// Response represents a status API response.
type Response struct {
	Status    string         `json:"status"`
	Message   string         `json:"message"`
	StartTime int64          `json:"startTimestamp"`
	EndTime   int64          `json:"endTimestamp"`
	Version   string         `json:"version"`
	Session   *SessionStatus `json:"session,omitempty"`
}

// SessionStatus is a point-in-time view of the augmented page.
type SessionStatus struct {
	URL           string `json:"url"`
	Mode          string `json:"mode"`
	Layout        string `json:"layout"`
	Page          int    `json:"page"`
	PerPage       int    `json:"perPage"`
	FetchPerPage  int    `json:"fetchPerPage"`
	MaxPage       int    `json:"maxPage"`
	NextOffset    int    `json:"nextOffset"`
	LoadedPages   int    `json:"loadedPages"`
	DroppedPages  int    `json:"droppedPages"`
	RenderedItems int    `json:"renderedItems"`
	MonitorState  string `json:"monitorState"`
	LastPage      int    `json:"lastPage,omitempty"`
	LastPageURL   string `json:"lastPageUrl,omitempty"`
	OpenOverlays  int    `json:"openOverlays"`
}

// Status values for API responses.
const (
	ResponseOK    = "ok"
	ResponseError = "error"
)
