package storage

import "context"

// ImpactReport lists the stored types affected by a change to one type.
type ImpactReport struct {
	// DirectlyAffected hold a field of the changed type.
	DirectlyAffected []string
	// IndirectlyAffected reach the changed type only through other types.
	IndirectlyAffected []string
}

// AnalyzeImpact walks the stored attribute edges backwards from fqn.
func AnalyzeImpact(ctx context.Context, s Store, fqn string) (*ImpactReport, error) {
	report := &ImpactReport{
		DirectlyAffected:   []string{},
		IndirectlyAffected: []string{},
	}

	direct, err := s.Dependents(ctx, fqn)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{fqn: true}
	for _, d := range direct {
		seen[d] = true
	}
	report.DirectlyAffected = append(report.DirectlyAffected, direct...)

	queue := append([]string(nil), direct...)
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]

		deps, err := s.Dependents(ctx, next)
		if err != nil {
			return nil, err
		}
		for _, d := range deps {
			if seen[d] {
				continue
			}
			seen[d] = true
			report.IndirectlyAffected = append(report.IndirectlyAffected, d)
			queue = append(queue, d)
		}
	}
	return report, nil
}
