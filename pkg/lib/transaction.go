package lib

import (
	"context"
	"fmt"
)

// StartTransaction starts a new in progress transaction.
func (c *Client) StartTransaction(ctx context.Context, opts StartTransactionOpts) (*Transaction, error) {
	return c.transactions.Start(ctx, opts)
}

// GetTransaction returns a transaction by ID.
func (c *Client) GetTransaction(ctx context.Context, id string) (*Transaction, error) {
	return c.transactions.Get(ctx, id)
}

// ListTransactions lists transactions, newest first.
func (c *Client) ListTransactions(ctx context.Context, filter TransactionFilter) ([]Transaction, error) {
	return c.transactions.List(ctx, filter)
}

// ListActions lists the authorizations of a transaction in start order.
func (c *Client) ListActions(ctx context.Context, transactionID string) ([]Action, error) {
	return c.ledger.ListByPurpose(ctx, transactionID)
}

// UpdateAgent updates the contact of the transaction agent. Phone numbers are
// stored in E.164 format.
func (c *Client) UpdateAgent(ctx context.Context, opts UpdateAgentOpts) (*Contact, error) {
	return c.transactions.UpdateAgent(ctx, opts)
}

// Authorize holds an offer or pre-authorizes a payment for a transaction.
// Failed provider calls are recorded on a failed action before returning.
func (c *Client) Authorize(ctx context.Context, opts AuthorizeOpts) (*Action, error) {
	return c.authorize.Authorize(ctx, opts)
}

// VoidAuthorization cancels an authorization and releases it on its provider.
func (c *Client) VoidAuthorization(ctx context.Context, opts VoidOpts) (*Action, error) {
	return c.authorize.Void(ctx, opts)
}

// ConfirmTransaction confirms a transaction and returns its order.
func (c *Client) ConfirmTransaction(ctx context.Context, opts ConfirmOpts) (*Order, error) {
	return c.transactions.Confirm(ctx, opts)
}

// CancelTransaction cancels an in progress transaction. Completed authorizations
// are released by the exported compensation tasks.
func (c *Client) CancelTransaction(ctx context.Context, id, agentID string) error {
	return c.transactions.Cancel(ctx, id, agentID)
}

// ExpireTransactions expires the in progress transactions past their expiry,
// returns their IDs.
func (c *Client) ExpireTransactions(ctx context.Context) ([]string, error) {
	ids, err := c.transactions.Expire(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not expire transactions: %w", err)
	}
	return ids, nil
}
