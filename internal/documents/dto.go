package documents

import "time"

type docResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
}

type ingestResponse struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Chunks int    `json:"chunks"`
}

func toResponse(doc Document) docResponse {
	return docResponse{
		ID:        doc.ID,
		Title:     doc.Title,
		CreatedAt: doc.CreatedAt,
	}
}

func toIngestResponse(res IngestResult) ingestResponse {
	return ingestResponse{
		ID:     res.Doc.ID,
		Title:  res.Doc.Title,
		Chunks: res.Chunks,
	}
}
