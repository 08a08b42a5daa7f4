package enrollment

import (
	"context"
	"fmt"

	"github.com/kozaktomas/rollcall/internal/config"
)

// PersonImages is the number of captures stored for one student.
type PersonImages struct {
	Roll   string `json:"roll"`
	Images int    `json:"images"`
}

// Readiness summarizes whether a subject has enough captures to train.
type Readiness struct {
	Students       int            `json:"students"`
	AvgImages      float64        `json:"avg_images"`
	MinImages      int            `json:"min_images"`
	MaxImages      int            `json:"max_images"`
	Ready          map[string]int `json:"ready"` // mode -> students with enough images
	Recommendation string         `json:"recommendation"`
	People         []PersonImages `json:"people"`
}

// ReadinessReport counts the captures of every student of the subject against
// each mode's images_per_student.
func ReadinessReport(ctx context.Context, source ImageSource, modes config.ModesConfig, subjectID int64) (*Readiness, error) {
	people, err := source.People(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("list enrollment images: %w", err)
	}

	r := &Readiness{Students: len(people), Ready: make(map[string]int)}
	for _, name := range modes.Names() {
		r.Ready[name] = 0
	}

	total := 0
	for i, p := range people {
		n := len(p.Images)
		r.People = append(r.People, PersonImages{Roll: p.Roll, Images: n})
		total += n
		if i == 0 || n < r.MinImages {
			r.MinImages = n
		}
		if n > r.MaxImages {
			r.MaxImages = n
		}
		for name, m := range modes.Modes {
			if n >= m.ImagesPerStudent {
				r.Ready[name]++
			}
		}
	}
	if len(people) > 0 {
		r.AvgImages = float64(total) / float64(len(people))
	}

	r.Recommendation = "Add more training images for best accuracy"
	if r.Ready[config.ModeHighQuality] > 0 {
		r.Recommendation = "High accuracy mode ready"
	}
	return r, nil
}
