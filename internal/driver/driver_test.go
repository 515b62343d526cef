package driver_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oakmoss/pdl2lua/internal/driver"
	"github.com/oakmoss/pdl2lua/internal/pdl"
)

const testPDL = `
little_endian_packets

enum Opcode : 8 {
    GET = 1,
    SET = 2,
    .. = UNKNOWN,
}

struct Header {
    opcode: Opcode,
    _reserved_: 8,
}

packet Message : Header (opcode = GET) {
    _size_(body): 16,
    _payload_(size=body),
}
`

func TestRunProducesBalancedLuaForEachTarget(t *testing.T) {
	file, err := pdl.Parse("test.pdl", testPDL)
	require.NoError(t, err)

	out, err := driver.Run(file, []string{"Message"}, driver.Options{})
	require.NoError(t, err)
	require.NotEmpty(t, out)

	// Every generated function closes with its own "end"; nested if/for
	// blocks only add more "end" lines, so the count of "end" lines is at
	// least the count of function definitions — a cheap substitute for
	// "would load in a real Lua VM" (SPEC_FULL.md §4).
	require.GreaterOrEqual(t, countOccurrences(out, "\nend"), countOccurrences(out, "function "))
	require.Contains(t, out, "Message_dissect")
	require.Contains(t, out, "Message_protocol_fields")
	require.Contains(t, out, "Message_match_constraints")
	require.Contains(t, out, "Header_dissect")
	require.Contains(t, out, "Opcode_enum = ProtoEnum.new()")
	require.Contains(t, out, `Opcode_enum:define("GET", 1)`)
	require.Contains(t, out, "Proto.new")
}

// spec §4.G step 2a emits every declaration in the file once per target-
// packet loop iteration, not just declarations reachable from the target:
// an unrelated struct sharing the file must still appear in the output for
// a target that never references it.
func TestRunEmitsEveryFileDeclarationNotJustReachableOnes(t *testing.T) {
	src := testPDL + `
struct Unrelated {
    y: 8,
}
`
	file, err := pdl.Parse("test.pdl", src)
	require.NoError(t, err)

	out, err := driver.Run(file, []string{"Message"}, driver.Options{})
	require.NoError(t, err)
	require.Contains(t, out, "Unrelated_dissect")
	require.Contains(t, out, "Unrelated_protocol_fields")
}

func TestRunAllTargetsSentinelCoversEveryPacket(t *testing.T) {
	file, err := pdl.Parse("test.pdl", testPDL)
	require.NoError(t, err)

	out, err := driver.Run(file, []string{driver.AllTargetsSentinel}, driver.Options{})
	require.NoError(t, err)
	require.Contains(t, out, "Message_proto")
}

func TestRunUnknownTargetIsBadInput(t *testing.T) {
	file, err := pdl.Parse("test.pdl", testPDL)
	require.NoError(t, err)

	_, err = driver.Run(file, []string{"NoSuchPacket"}, driver.Options{})
	require.Error(t, err)
}

func TestRunVerboseEmitsStructDumpComments(t *testing.T) {
	file, err := pdl.Parse("test.pdl", testPDL)
	require.NoError(t, err)

	out, err := driver.Run(file, []string{"Message"}, driver.Options{Verbose: true})
	require.NoError(t, err)
	require.Contains(t, out, "Sequence{Name:\"Message\"")
}

func countOccurrences(s, sub string) int {
	count := 0
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			count++
		}
	}
	return count
}
