package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/connectorhub/internal/config"
	"github.com/teemow/connectorhub/internal/server"
	"github.com/teemow/connectorhub/internal/tools/toolstest"
)

func holdedTools(t *testing.T, sc *server.ServerContext) AccountTools {
	t.Helper()
	c, ok := sc.Connector(config.ServiceHolded)
	require.True(t, ok)
	return AccountTools{Label: "holded", Connectors: map[string]*server.Connector{"holded": c}}
}

func TestRegisterAccountTools_ReadOnly(t *testing.T) {
	sc := toolstest.NewServerContext(t, nil, true)
	s := toolstest.NewMCPServer()
	RegisterAccountTools(s, sc, holdedTools(t, sc), true)

	assert.Equal(t, []string{"list_holded_accounts", "set_default_holded_account"}, toolstest.ToolNames(t, s))
}

func TestRegisterAccountTools_Lifecycle(t *testing.T) {
	sc := toolstest.NewServerContext(t, nil, false)
	s := toolstest.NewMCPServer()
	RegisterAccountTools(s, sc, holdedTools(t, sc), false)

	assert.Equal(t, []string{
		"add_holded_account",
		"list_holded_accounts",
		"remove_holded_account",
		"set_default_holded_account",
	}, toolstest.ToolNames(t, s))

	res := toolstest.CallTool(t, s, "add_holded_account", map[string]any{"account": "Shop", "api_key": "k1"})
	require.False(t, res.IsError, res.Text)
	assert.Equal(t, "shop", res.JSON["account"])
	assert.Equal(t, "shop", res.JSON["default_account"])

	res = toolstest.CallTool(t, s, "add_holded_account", map[string]any{"account": "backoffice", "api_key": "k2", "make_default": true})
	require.False(t, res.IsError, res.Text)
	assert.Equal(t, "backoffice", res.JSON["default_account"])

	res = toolstest.CallTool(t, s, "set_default_holded_account", map[string]any{"account": "shop"})
	require.False(t, res.IsError, res.Text)
	assert.Equal(t, "shop", res.JSON["default_account"])

	res = toolstest.CallTool(t, s, "set_default_holded_account", map[string]any{"account": "nobody"})
	assert.True(t, res.IsError)
	assert.Equal(t, false, res.JSON["success"])

	res = toolstest.CallTool(t, s, "remove_holded_account", map[string]any{"account": "shop"})
	require.False(t, res.IsError, res.Text)
	assert.Equal(t, "backoffice", res.JSON["default_account"])

	res = toolstest.CallTool(t, s, "list_holded_accounts", nil)
	require.False(t, res.IsError, res.Text)
	assert.Equal(t, []any{"backoffice"}, res.JSON["accounts"])
	assert.Equal(t, float64(1), res.JSON["count"])
}

func TestRegisterAccountTools_AddWithoutSecrets(t *testing.T) {
	sc := toolstest.NewServerContext(t, nil, false)
	s := toolstest.NewMCPServer()
	RegisterAccountTools(s, sc, holdedTools(t, sc), false)

	res := toolstest.CallTool(t, s, "add_holded_account", map[string]any{"account": "shop"})
	assert.True(t, res.IsError)
	assert.Contains(t, res.JSON["error"], "add account failed")
}

func TestRegisterAccountTools_Provider(t *testing.T) {
	sc := toolstest.NewServerContext(t, nil, false)
	google, _ := sc.Connector(config.ServiceCalendar)
	apple, _ := sc.Connector(config.ServiceCalDAV)
	s := toolstest.NewMCPServer()
	RegisterAccountTools(s, sc, AccountTools{
		Label:      "calendar",
		Connectors: map[string]*server.Connector{"google": google, "apple": apple},
	}, false)

	res := toolstest.CallTool(t, s, "list_calendar_accounts", nil)
	assert.True(t, res.IsError)
	assert.Contains(t, res.JSON["error"], "provider is required")

	res = toolstest.CallTool(t, s, "add_calendar_account", map[string]any{
		"provider": "apple",
		"account":  "me@icloud.com",
		"username": "me@icloud.com",
		"password": "app-specific",
	})
	require.False(t, res.IsError, res.Text)
	assert.Equal(t, "caldav", res.JSON["service"])

	res = toolstest.CallTool(t, s, "list_calendar_accounts", map[string]any{"provider": "google"})
	require.False(t, res.IsError, res.Text)
	assert.Equal(t, float64(0), res.JSON["count"])
}
