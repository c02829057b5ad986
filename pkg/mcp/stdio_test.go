package mcp

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runStdio feeds newline-delimited JSON-RPC messages through a stdio server
// and returns the decoded response lines.
func runStdio(t *testing.T, input string) []*JSONRPCResponse {
	t.Helper()

	srv := NewServer(DefaultConfig(), nil)
	stdio := NewStdioServer(srv)

	var out bytes.Buffer
	stdio.SetIO(strings.NewReader(input), &out)
	require.NoError(t, stdio.Run())

	var responses []*JSONRPCResponse
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		if line == "" {
			continue
		}
		var resp JSONRPCResponse
		require.NoError(t, json.Unmarshal([]byte(line), &resp), "line: %s", line)
		responses = append(responses, &resp)
	}
	return responses
}

func stdioLine(t *testing.T, id interface{}, method string, params interface{}) string {
	t.Helper()

	req := map[string]interface{}{"jsonrpc": "2.0", "method": method}
	if id != nil {
		req["id"] = id
	}
	if params != nil {
		req["params"] = params
	}
	data, err := json.Marshal(req)
	require.NoError(t, err)
	return string(data) + "\n"
}

func TestStdioLifecycle(t *testing.T) {
	input := stdioLine(t, 1, "initialize", map[string]interface{}{
		"protocolVersion": ProtocolVersion,
		"clientInfo":      map[string]interface{}{"name": "stdio-client", "version": "1.0"},
	}) +
		stdioLine(t, nil, "notifications/initialized", nil) +
		stdioLine(t, 2, "tools/list", nil) +
		stdioLine(t, 3, "ping", nil)

	responses := runStdio(t, input)
	require.Len(t, responses, 3) // initialized notification gets no reply

	require.Nil(t, responses[0].Error)
	raw, err := json.Marshal(responses[0].Result)
	require.NoError(t, err)
	var init InitializeResult
	require.NoError(t, json.Unmarshal(raw, &init))
	assert.Equal(t, ServerName, init.ServerInfo.Name)

	require.Nil(t, responses[1].Error)
	raw, err = json.Marshal(responses[1].Result)
	require.NoError(t, err)
	var list ToolsListResult
	require.NoError(t, json.Unmarshal(raw, &list))
	assert.Len(t, list.Tools, 10)

	require.Nil(t, responses[2].Error)
}

func TestStdioRequestBeforeInitialize(t *testing.T) {
	responses := runStdio(t, stdioLine(t, 1, "tools/list", nil))
	require.Len(t, responses, 1)
	require.NotNil(t, responses[0].Error)
	assert.Equal(t, ErrCodeNotInitialized, responses[0].Error.Code)
}

func TestStdioParseError(t *testing.T) {
	responses := runStdio(t, "{broken\n")
	require.Len(t, responses, 1)
	require.NotNil(t, responses[0].Error)
	assert.Equal(t, ErrCodeParseError, responses[0].Error.Code)
}

func TestStdioSkipsBlankLines(t *testing.T) {
	input := "\n\n" + stdioLine(t, 1, "initialize", map[string]interface{}{
		"protocolVersion": ProtocolVersion,
		"clientInfo":      map[string]interface{}{"name": "c", "version": "1"},
	}) + "\n"

	responses := runStdio(t, input)
	require.Len(t, responses, 1)
	assert.Nil(t, responses[0].Error)
}
