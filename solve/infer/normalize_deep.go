package infer

import "github.com/cottand/ilesolve/ir"

// DeepNormalize replaces every bound inference variable in value with its value,
// recursively, and every unbound one with the representative of its set
func DeepNormalize[T ir.Foldable[T]](t *InferenceTable, value T) T {
	return ir.MustFold(value, deepNormalizer{table: t}, 0)
}

type deepNormalizer struct {
	table *InferenceTable
}

func (n deepNormalizer) FoldFreeVar(depth, binders int) (ir.Ty, error) {
	v := TyVarFromDepth(depth)
	if value, bound := n.table.ProbeVar(v); bound {
		normalized, err := value.FoldWith(n, 0)
		if err != nil {
			return nil, err
		}
		return ir.UpShift(normalized, binders), nil
	}
	return ir.TyVar{Depth: n.table.Root(v).ToDepth() + binders}, nil
}

func (n deepNormalizer) FoldFreeLifetimeVar(depth, binders int) (ir.Lifetime, error) {
	v := LifetimeVarFromDepth(depth)
	if value, bound := n.table.ProbeLifetimeVar(v); bound {
		normalized, err := value.FoldWith(n, 0)
		if err != nil {
			return nil, err
		}
		return ir.UpShift(normalized, binders), nil
	}
	return ir.LifetimeVar{Depth: n.table.LifetimeRoot(v).ToDepth() + binders}, nil
}
