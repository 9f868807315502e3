package scalar_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eqsat/internal/lang/scalar"
)

func TestParseProgramAssignment(t *testing.T) {
	prog, err := scalar.ParseProgram(`y = x + 1 * 2;`)
	require.NoError(t, err)
	require.Len(t, prog.Stmts, 1)

	node, err := prog.Lower()
	require.NoError(t, err)
	assert.Equal(t, "(+ x (* 1 2))", node.String())
}

func TestParseProgramPrecedence(t *testing.T) {
	prog, err := scalar.ParseProgram(`y = 1 + 2 * 3 - 4;`)
	require.NoError(t, err)

	node, err := prog.Lower()
	require.NoError(t, err)
	assert.Equal(t, "(- (+ 1 (* 2 3)) 4)", node.String())
}

func TestParseProgramIfElse(t *testing.T) {
	prog, err := scalar.ParseProgram(`
		y = 0;
		if (x < 0) {
			y = -1;
		} else {
			y = 1;
		}
	`)
	require.NoError(t, err)
	require.Len(t, prog.Stmts, 2)

	node, err := prog.Lower()
	require.NoError(t, err)
	assert.Equal(t, "(ite (< x 0) (neg 1) 1)", node.String())
}

func TestParseProgramSequentialSubstitution(t *testing.T) {
	prog, err := scalar.ParseProgram(`
		a = x + 1;
		b = a * 2;
	`)
	require.NoError(t, err)

	node, err := prog.Lower()
	require.NoError(t, err)
	assert.Equal(t, "(* (+ x 1) 2)", node.String())
}

func TestLowerUnrollsWhile(t *testing.T) {
	prog, err := scalar.ParseProgram(`
		y = 0;
		while (y < 10) {
			y = y + 1;
		}
	`)
	require.NoError(t, err)

	node, err := prog.Lower()
	require.NoError(t, err)

	// Each of the MaxLoopTrips guarded iterations nests another ite, so the
	// unrolled term's size grows with the trip count rather than staying
	// flat the way a true fixpoint would.
	assert.Greater(t, node.Size(), scalar.MaxLoopTrips)
}

func TestParseProgramRejectsGarbage(t *testing.T) {
	_, err := scalar.ParseProgram(`y = ;`)
	assert.Error(t, err)
}
