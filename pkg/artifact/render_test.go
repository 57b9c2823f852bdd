package artifact

import (
	"encoding/json"
	"net/netip"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zjpeterson/ztprov/pkg/inventory"
)

func testTarget(serial string) inventory.Target {
	return inventory.Target{
		Serial:    serial,
		Name:      "sw-" + serial,
		Status:    inventory.StatusPlanned,
		Interface: "GigabitEthernet0/0",
		Address:   netip.MustParseAddr("10.15.120.91"),
		Netmask:   "255.255.252.0",
		Gateway:   netip.MustParseAddr("10.15.123.254"),
	}
}

func testConfig() SharedConfig {
	return SharedConfig{
		ControllerURL: "https://awx.example.net",
		HostConfigKey: "24680bdf",
		JobTemplateID: 23,
		Username:      "admin",
		SSHKey:        strings.Repeat("A", 200),
		ChunkWidth:    80,
	}
}

func TestChunk(t *testing.T) {
	t.Run("round trip preserves content", func(t *testing.T) {
		for _, length := range []int{0, 1, 79, 80, 81, 160, 1000} {
			key := strings.Repeat("k", length)
			lines := Chunk(key, 80)
			assert.Equal(t, key, Reassemble(lines), "length %d", length)
		}
	})

	t.Run("no chunk exceeds width", func(t *testing.T) {
		lines := Chunk(strings.Repeat("x", 500), 72)
		for _, line := range lines {
			assert.LessOrEqual(t, len(line), 72)
		}
	})

	t.Run("zero width falls back to default", func(t *testing.T) {
		lines := Chunk(strings.Repeat("x", 100), 0)
		require.Len(t, lines, 2)
		assert.Len(t, lines[0], 80)
	})
}

func TestRenderShared(t *testing.T) {
	t.Run("idempotent", func(t *testing.T) {
		targets := []inventory.Target{testTarget("B"), testTarget("A")}
		first, err := RenderShared(targets, testConfig())
		require.NoError(t, err)
		second, err := RenderShared(targets, testConfig())
		require.NoError(t, err)
		assert.Equal(t, first, second, "re-render must be byte-identical")
	})

	t.Run("serials sorted regardless of input order", func(t *testing.T) {
		forward, err := RenderShared([]inventory.Target{testTarget("A"), testTarget("B")}, testConfig())
		require.NoError(t, err)
		reverse, err := RenderShared([]inventory.Target{testTarget("B"), testTarget("A")}, testConfig())
		require.NoError(t, err)
		assert.Equal(t, forward, reverse)
	})

	t.Run("payload fields", func(t *testing.T) {
		data, err := RenderShared([]inventory.Target{testTarget("FOC1")}, testConfig())
		require.NoError(t, err)

		var shared Shared
		require.NoError(t, json.Unmarshal(data, &shared))
		assert.Equal(t, "https://awx.example.net", shared.Controller)
		assert.Equal(t, 23, shared.JobTemplateID)
		assert.Equal(t, []string{"FOC1"}, shared.Serials)
		assert.Equal(t, strings.Repeat("A", 200), Reassemble(shared.SSHKeyLines))
	})

	t.Run("empty target list yields empty serial set", func(t *testing.T) {
		data, err := RenderShared(nil, testConfig())
		require.NoError(t, err)

		var shared Shared
		require.NoError(t, json.Unmarshal(data, &shared))
		assert.Empty(t, shared.Serials)
	})
}

func TestRenderTarget(t *testing.T) {
	data, err := RenderTarget(testTarget("FOC1846X084"))
	require.NoError(t, err)

	var device Device
	require.NoError(t, json.Unmarshal(data, &device))
	assert.Equal(t, "GigabitEthernet0/0", device.Interface)
	assert.Equal(t, "10.15.120.91", device.Address)
	assert.Equal(t, "255.255.252.0", device.Netmask)
	assert.Equal(t, "10.15.123.254", device.Gateway)

	again, err := RenderTarget(testTarget("FOC1846X084"))
	require.NoError(t, err)
	assert.Equal(t, data, again)
}

func TestRenderSetConsistency(t *testing.T) {
	targets := []inventory.Target{testTarget("A"), testTarget("B"), testTarget("C")}
	set, err := Render(targets, testConfig())
	require.NoError(t, err)

	var shared Shared
	require.NoError(t, json.Unmarshal(set.Shared, &shared))

	keys := make([]string, 0, len(set.Devices))
	for serial := range set.Devices {
		keys = append(keys, serial)
	}
	assert.ElementsMatch(t, shared.Serials, keys, "shared serial set must equal per-target artifact keys")
}
