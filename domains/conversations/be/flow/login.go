package flow

import (
	"context"
	"errors"
	"strings"

	accountsvc "github.com/mukando-hq/storekeeper/domains/accounts/be/service"
	"github.com/mukando-hq/storekeeper/platform/go/chat"
)

// LoginState names the login flow's steps.
type LoginState string

const (
	LoginUsername      LoginState = "username"
	LoginPassword      LoginState = "password"
	LoginSwitchConfirm LoginState = "switch_confirm"
)

// LoginData is the login flow's accumulated state. The password is never
// stored here; it is consumed within the event that carries it.
type LoginData struct {
	State    LoginState `json:"state"`
	Username string     `json:"username,omitempty"`
}

func (d *Dispatcher) handleLogin(ctx context.Context, ev chat.Event, data *LoginData) error {
	switch data.State {
	case LoginUsername:
		username := strings.TrimSpace(ev.Payload)
		if username == "" {
			d.send(ctx, ev.Identity, "Enter your username.", nil)
			return nil
		}
		data.Username = username
		data.State = LoginPassword
		if err := d.saveState(ctx, ev.Identity, flowLogin, data); err != nil {
			return err
		}
		d.send(ctx, ev.Identity, "Enter your password.", nil)
		return nil

	case LoginPassword:
		account, err := d.accounts.Authenticate(ctx, data.Username, ev.Payload)
		if err != nil {
			if errors.Is(err, accountsvc.ErrInvalidCredentials) {
				data.State = LoginUsername
				data.Username = ""
				if saveErr := d.saveState(ctx, ev.Identity, flowLogin, data); saveErr != nil {
					return saveErr
				}
				d.send(ctx, ev.Identity, "Wrong username or password. Enter your username to try again.", nil)
				return nil
			}
			return err
		}

		// The account may already be linked to another device. Overwriting
		// that link needs an explicit confirmation.
		if account.Identity != nil && *account.Identity != ev.Identity {
			data.State = LoginSwitchConfirm
			if err := d.saveState(ctx, ev.Identity, flowLogin, data); err != nil {
				return err
			}
			d.send(ctx, ev.Identity, "This account is already signed in on another device. Move it to this one?", yesNoMenu())
			return nil
		}

		return d.completeLogin(ctx, ev, data.Username, false)

	case LoginSwitchConfirm:
		switch eventToken(ev) {
		case "yes":
			return d.completeLogin(ctx, ev, data.Username, true)
		case "no":
			if err := d.finishFlow(ctx, ev.Identity); err != nil {
				return err
			}
			d.send(ctx, ev.Identity, "Login cancelled.", welcomeMenu())
			return nil
		}
		d.send(ctx, ev.Identity, "Answer yes or no.", yesNoMenu())
		return nil
	}

	d.send(ctx, ev.Identity, "Enter your username.", nil)
	return nil
}

func (d *Dispatcher) completeLogin(ctx context.Context, ev chat.Event, username string, switchDevice bool) error {
	account, err := d.accounts.FindByUsername(ctx, username)
	if err != nil {
		return err
	}

	linked, err := d.accounts.LinkIdentity(ctx, account, ev.Identity, switchDevice)
	if err != nil {
		if errors.Is(err, accountsvc.ErrIdentityLinked) {
			if clearErr := d.finishFlow(ctx, ev.Identity); clearErr != nil {
				return clearErr
			}
			d.send(ctx, ev.Identity, "This chat is already linked to a different account.", nil)
			return nil
		}
		return err
	}

	if err := d.finishFlow(ctx, ev.Identity); err != nil {
		return err
	}
	d.send(ctx, ev.Identity, "You're in, "+linked.Username+".", MainMenu(linked.Role))
	return nil
}
