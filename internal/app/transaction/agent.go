package transaction

import (
	"context"
	"fmt"

	"github.com/nyaruka/phonenumbers"

	"github.com/slok/ordersaga/internal/log"
	"github.com/slok/ordersaga/internal/model"
)

// UpdateAgentRequest is an update agent contact request.
type UpdateAgentRequest struct {
	TransactionID string
	AgentID       string
	Contact       model.Contact
}

// UpdateAgent sets the contact of the agent of an in progress transaction. The
// telephone is stored in E.164 format.
func (s *Service) UpdateAgent(ctx context.Context, req UpdateAgentRequest) (*model.Contact, error) {
	if _, err := s.owned(ctx, req.TransactionID, req.AgentID); err != nil {
		return nil, err
	}

	contact := req.Contact
	if contact.Telephone != "" {
		tel, err := s.normalizePhone(contact.Telephone)
		if err != nil {
			return nil, err
		}
		contact.Telephone = tel
	}

	if err := s.txs.UpdateAgentContact(ctx, req.TransactionID, req.AgentID, contact); err != nil {
		return nil, fmt.Errorf("could not update agent contact: %w", err)
	}

	s.logger.WithValues(log.Kv{"transaction": req.TransactionID}).Debugf("Agent contact updated")
	return &contact, nil
}

func (s *Service) normalizePhone(raw string) (string, error) {
	num, err := phonenumbers.Parse(raw, s.phoneRegion)
	if err != nil {
		return "", fmt.Errorf("invalid telephone %q: %s: %w", raw, err, model.ErrArgument)
	}

	if !phonenumbers.IsValidNumber(num) {
		return "", fmt.Errorf("invalid telephone %q: %w", raw, model.ErrArgument)
	}

	return phonenumbers.Format(num, phonenumbers.E164), nil
}
