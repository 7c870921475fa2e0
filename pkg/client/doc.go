// Package client is a Go client for the item store HTTP API.
//
// # Quick Start
//
//	c := client.New("https://items.example.com")
//
//	// obtain a token; it is kept for later calls
//	if err := c.Login(ctx, "alice@example.com", "password123"); err != nil {
//	    return err
//	}
//
//	if err := c.CreateItem(ctx, "buy milk"); err != nil {
//	    return err
//	}
//	items, err := c.MyItems(ctx)
//
// A token obtained elsewhere can be supplied with [WithToken] or
// [Client.SetToken].
//
// # Error Handling
//
// Non-2xx responses are returned as *[APIError], carrying the status code
// and the server's detail message. Match them by status with errors.Is:
//
//	err := c.CreateItem(ctx, "x")
//	switch {
//	case errors.Is(err, client.ErrUnauthorized):
//	    // token rejected; log in again
//	case errors.Is(err, client.ErrForbidden):
//	    // missing credentials or not an admin
//	}
package client
