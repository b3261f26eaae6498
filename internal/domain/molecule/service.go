package molecule

import (
	"context"
	"fmt"

	"github.com/turtacn/KeyDDI-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyDDI-Intelligence/pkg/errors"
)

// ServiceOptions configures fingerprint generation.
type ServiceOptions struct {
	Radius int
	// AddHydrogens turns implicit hydrogens into explicit atoms before
	// fingerprinting.
	AddHydrogens bool
}

// DefaultServiceOptions matches the settings the interaction model was
// trained with.
func DefaultServiceOptions() ServiceOptions {
	return ServiceOptions{Radius: DefaultRadius, AddHydrogens: true}
}

// Service is the default Fingerprinter: parse, optionally add hydrogens, then
// compute the Morgan count fingerprint.  Results go through an optional
// FingerprintRepository; repository failures are logged and never fail a call.
type Service struct {
	repo   FingerprintRepository
	opts   ServiceOptions
	logger logging.Logger
}

// NewService constructs a Service.  repo may be nil.
func NewService(repo FingerprintRepository, opts ServiceOptions, logger logging.Logger) *Service {
	if opts.Radius < 0 {
		opts.Radius = DefaultRadius
	}
	return &Service{repo: repo, opts: opts, logger: logging.OrNop(logger)}
}

// CacheKey derives the repository key for s under the service options.
func (s *Service) CacheKey(st Structure) string {
	h := 0
	if s.opts.AddHydrogens {
		h = 1
	}
	return fmt.Sprintf("morgan:r%d:h%d:%s", s.opts.Radius, h, st.Digest())
}

// Fingerprint implements Fingerprinter.  A structure that cannot be parsed
// yields an ErrCodeParseFailure error.
func (s *Service) Fingerprint(ctx context.Context, st Structure) (*Fingerprint, error) {
	key := s.CacheKey(st)
	if s.repo != nil {
		fp, err := s.repo.Get(ctx, key)
		switch {
		case err == nil && fp != nil:
			return fp, nil
		case err != nil && !errors.IsCode(err, errors.CodeNotFound):
			s.logger.Warn("fingerprint cache read failed", logging.String(logging.KeyDrugID, st.ID), logging.Err(err))
		}
	}

	mol, err := Parse(st)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeParseFailure, "cannot parse structure").WithDetail(st.ID)
	}
	if s.opts.AddHydrogens {
		mol = mol.AddHs()
	}
	fp, err := MorganCount(mol, s.opts.Radius)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeParseFailure, "cannot fingerprint structure").WithDetail(st.ID)
	}

	if s.repo != nil {
		if err := s.repo.Put(ctx, key, fp); err != nil {
			s.logger.Warn("fingerprint cache write failed", logging.String(logging.KeyDrugID, st.ID), logging.Err(err))
		}
	}
	return fp, nil
}

//Personal.AI order the ending
