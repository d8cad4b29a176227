package client

import "context"

// GetEntitlement returns the caller's entitlement decision
func (c *Client) GetEntitlement(ctx context.Context) (*Entitlement, error) {
	var ent Entitlement
	if err := c.doRequest(ctx, "GET", "/api/v1/entitlement", nil, &ent); err != nil {
		return nil, err
	}
	return &ent, nil
}

// GetTrialStatus returns the trial countdown for the caller's account
func (c *Client) GetTrialStatus(ctx context.Context) (*TrialStatus, error) {
	var status TrialStatus
	if err := c.doRequest(ctx, "GET", "/api/v1/entitlement/trial", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Impersonate mints an impersonation grant for the given account. Admin
// only. The grant is attached to subsequent requests automatically.
func (c *Client) Impersonate(ctx context.Context, accountID int64) (*ImpersonationGrant, error) {
	req := map[string]int64{
		"accountId": accountID,
	}

	var grant ImpersonationGrant
	if err := c.doRequest(ctx, "POST", "/api/v1/admin/impersonate", req, &grant); err != nil {
		return nil, err
	}

	c.SetGrant(grant.Grant)
	return &grant, nil
}
