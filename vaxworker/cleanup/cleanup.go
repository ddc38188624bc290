package cleanup

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/schoolvax/vax-app/log"
	"github.com/schoolvax/vax-app/vax/constants"
	"github.com/schoolvax/vax-app/vax/eligibility"
	"github.com/schoolvax/vax-app/vax/models"
)

// Catalogue exposes the programmes and their eligibility for an academic year.
type Catalogue interface {
	Programmes(ctx context.Context) ([]models.Programme, error)
	Index(ctx context.Context, academicYear int) (*eligibility.Index, error)
}

// DeleteIneligibleStatuses removes derived rows whose patient is no longer
// offered the row's programme in academicYear. It returns how many rows of
// each kind were deleted.
func DeleteIneligibleStatuses(ctx context.Context, store models.StatusRepository, catalogue Catalogue, academicYear int) (map[models.StatusKind]int64, error) {
	logger := log.GetCtxLogger(ctx)

	programmes, err := catalogue.Programmes(ctx)
	if err != nil {
		return nil, errors.Wrap(err, constants.ProgrammeLoadErr)
	}
	idx, err := catalogue.Index(ctx, academicYear)
	if err != nil {
		return nil, errors.Wrap(err, constants.ProgrammeLoadErr)
	}

	deleted := make(map[models.StatusKind]int64, len(models.StatusKinds))
	for _, kind := range models.StatusKinds {
		for _, p := range programmes {
			years := idx.BirthAcademicYears(p.ID)
			if years == nil {
				years = []int{}
			}

			n, err := store.DeleteIneligible(ctx, kind, p.ID, years)
			if err != nil {
				return deleted, errors.Wrapf(err, "%s for programme %s", constants.CleanupFailedErr, p.Type)
			}
			deleted[kind] += n

			if n > 0 {
				logger.WithFields(logrus.Fields{
					"kind":      kind,
					"programme": p.Type,
					"deleted":   n,
				}).Info("Deleted ineligible statuses")
			}
		}
	}

	return deleted, nil
}
