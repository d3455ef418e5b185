package render

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"unit-finder/internal/domain"
)

// TextRenderer prints the finder view for a terminal: status line, map
// center and the ranked list with directions links.
type TextRenderer struct {
	mu sync.Mutex
	w  io.Writer
	// Quiet suppresses the transient LOCATING/FETCHING frames.
	Quiet bool
}

func NewTextRenderer(w io.Writer) *TextRenderer {
	return &TextRenderer{w: w}
}

func (r *TextRenderer) Render(ctx context.Context, view domain.MapView) error {
	if r.Quiet && view.Phase.Busy() {
		return nil
	}

	var b strings.Builder

	fmt.Fprintf(&b, "[%s] mapa %s zoom %d\n", statusLabel(view.Phase), view.Center, view.Zoom)
	if view.Message != "" {
		fmt.Fprintf(&b, "  %s\n", view.Message)
	}

	if view.Search != nil && view.Phase == domain.PhaseReady {
		where := view.Search.City
		if where == "" {
			where = view.Search.Center.String()
		}
		fmt.Fprintf(&b, "  Busca: %s, raio %.0f km\n", where, view.Search.RadiusKm)
	}

	if view.Phase == domain.PhaseReady && len(view.Units) > 0 {
		t := domain.CountCategories(view.Units)
		fmt.Fprintf(&b, "  %d unidades: %d públicas, %d privadas", len(view.Units), t.Public, t.Private)
		if t.Other > 0 {
			fmt.Fprintf(&b, ", %d sem categoria", t.Other)
		}
		b.WriteString("\n")

		for i, ru := range view.Units {
			u := ru.Unit
			mark := " "
			if view.Selected != nil && *view.Selected == u.ID {
				mark = "*"
			}

			fmt.Fprintf(&b, "%s%2d. [%s] %s (id %s)", mark, i+1, u.Category.Label(), u.Name, u.ID)
			if ru.DistanceKm != nil {
				fmt.Fprintf(&b, " - %.1f km", *ru.DistanceKm)
			}
			b.WriteString("\n")

			if u.Address != "" {
				fmt.Fprintf(&b, "      %s\n", u.Address)
			}
			if u.Phone != "" {
				fmt.Fprintf(&b, "      Tel: %s\n", u.Phone)
			}
			if u.Email != "" {
				fmt.Fprintf(&b, "      E-mail: %s\n", u.Email)
			}
			if u.Website != "" {
				fmt.Fprintf(&b, "      Site: %s\n", u.Website)
			}
			if u.OpeningHours != "" {
				fmt.Fprintf(&b, "      Horário: %s\n", u.OpeningHours)
			}
			if u.Services != "" {
				fmt.Fprintf(&b, "      Serviços: %s\n", u.Services)
			}
			if len(u.Specialties) > 0 {
				fmt.Fprintf(&b, "      Especialidades: %s\n", strings.Join(u.Specialties, ", "))
			}
			if u.AccessibilityNotes != "" {
				fmt.Fprintf(&b, "      Acessibilidade: %s\n", u.AccessibilityNotes)
			}
			if u.Rating != nil {
				fmt.Fprintf(&b, "      Avaliação: %.1f/5\n", *u.Rating)
			}
			if link := view.Directions[u.ID]; link != "" {
				fmt.Fprintf(&b, "      Rotas: %s\n", link)
			}
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := io.WriteString(r.w, b.String()); err != nil {
		return fmt.Errorf("write text view: %w", err)
	}
	return nil
}

func statusLabel(p domain.Phase) string {
	switch p {
	case domain.PhaseIdle:
		return "pronto para buscar"
	case domain.PhaseLocating:
		return "obtendo localização..."
	case domain.PhaseFetching:
		return "buscando unidades..."
	case domain.PhaseReady:
		return "unidades encontradas"
	case domain.PhaseLocationError:
		return "erro de localização"
	case domain.PhaseFetchError:
		return "erro na busca"
	default:
		return string(p)
	}
}
