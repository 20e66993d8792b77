package usecase

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xavierca1/aqar-matcher/internal/entity"
	"github.com/xavierca1/aqar-matcher/internal/normalize"
)

// SubmitRequirementsUseCase stores a searcher's criteria. A submission whose
// canonical property type matches an active request updates it in place;
// otherwise a new request is appended.
type SubmitRequirementsUseCase struct {
	Clients ClientRepository
	Now     func() time.Time
	Logger  *zap.SugaredLogger
}

func NewSubmitRequirementsUseCase(clients ClientRepository, logger *zap.SugaredLogger) *SubmitRequirementsUseCase {
	return &SubmitRequirementsUseCase{Clients: clients, Now: time.Now, Logger: logger}
}

func (uc *SubmitRequirementsUseCase) Execute(ctx context.Context, input SubmitRequirementsInput) (*SubmitRequirementsOutput, error) {
	if err := JoinValidation(ValidateSubmitRequirementsInput(input)); err != nil {
		return nil, err
	}

	canonical := normalize.PropertyType(input.PropertyType)
	city, hoods := resolveLocation(input.City, input.Neighborhoods)
	now := uc.Now()

	out := &SubmitRequirementsOutput{}
	client, err := uc.Clients.Upsert(ctx, input.Phone, func(c *entity.Client) error {
		idx := -1
		for i, r := range c.Requests {
			if r.IsActive() && normalize.SamePropertyType(r.PropertyType, canonical) {
				idx = i
				break
			}
		}

		var req entity.Request
		if idx >= 0 {
			req = c.Requests[idx]
		} else {
			req = entity.Request{
				ID:        uuid.NewString(),
				Status:    entity.RequestActive,
				CreatedAt: now,
			}
		}
		req.PropertyType = canonical
		req.Purpose = entity.Purpose(input.Purpose)
		req.PriceMin = input.PriceMin
		req.PriceMax = input.PriceMax
		req.AreaMin = input.AreaMin
		req.AreaMax = input.AreaMax
		req.City = city
		req.Neighborhoods = hoods
		req.ContactNumber = strings.TrimSpace(input.ContactNumber)
		req.AdditionalSpecs = strings.TrimSpace(input.AdditionalSpecs)
		req.UpdatedAt = now

		if idx >= 0 {
			c.Requests[idx] = req
		} else {
			c.Requests = append(c.Requests, req)
		}

		if name := strings.TrimSpace(input.Name); name != "" {
			c.Name = name
		}
		c.Role = entity.RoleSearcher
		c.State = entity.StateCompleted
		c.LastMessageAt = &now

		out.Created = idx < 0
		out.RequestID = req.ID
		out.Request = req.Clone()
		return nil
	})
	if err != nil {
		return nil, wrapClientErr("falha ao salvar pedido", err)
	}

	out.Phone = client.Phone
	out.Requests = len(client.Requests)
	uc.Logger.Infow("📝 [REQUESTS] pedido salvo",
		"phone", client.Phone,
		"request_id", out.RequestID,
		"property_type", canonical,
		"created", out.Created,
	)
	return out, nil
}

// resolveLocation expands a lone city into its neighborhoods and infers the
// city when every neighborhood belongs to the same one.
func resolveLocation(city string, neighborhoods []string) (string, []string) {
	hoods := normalize.Neighborhoods(neighborhoods)
	city = strings.TrimSpace(city)

	if len(hoods) == 1 && normalize.IsCity(hoods[0]) {
		canonical := normalize.CanonicalCity(hoods[0])
		return canonical, normalize.ExpandCityToNeighborhoods(canonical)
	}
	if c := normalize.CanonicalCity(city); c != "" {
		city = c
	}
	if city == "" && len(hoods) > 0 {
		common := normalize.CitiesOf(hoods[0])
		if len(common) == 1 {
			city = common[0]
			for _, h := range hoods[1:] {
				if !slices.Contains(normalize.CitiesOf(h), city) {
					city = ""
					break
				}
			}
		}
	}
	return city, hoods
}
