package dto

const (
	defaultPageSize = 20
	maxPageSize     = 200
)

// PageRequest paginación limit/offset por query string.
type PageRequest struct {
	Limit  int `query:"limit"`
	Offset int `query:"offset"`
}

// DefaultPage normaliza la página: limit 0 pasa a 20, el tope es 200 y offset no baja de 0.
func (p *PageRequest) DefaultPage() {
	if p.Limit <= 0 {
		p.Limit = defaultPageSize
	}
	if p.Limit > maxPageSize {
		p.Limit = maxPageSize
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
}

// Response metadatos para una página con returned elementos. NextOffset solo se
// informa si la página vino llena.
func (p PageRequest) Response(returned int) PageResponse {
	out := PageResponse{Limit: p.Limit, Offset: p.Offset, Count: returned}
	if p.Limit > 0 && returned >= p.Limit {
		next := p.Offset + returned
		out.NextOffset = &next
	}
	return out
}

// PageResponse metadatos de página en respuestas.
type PageResponse struct {
	Limit      int  `json:"limit"`
	Offset     int  `json:"offset"`
	Count      int  `json:"count"`
	NextOffset *int `json:"next_offset,omitempty"`
}

// ErrorResponse cuerpo de error HTTP. Retryable marca conflictos que el cliente puede reintentar.
type ErrorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}
