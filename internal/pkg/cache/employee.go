package cache

import (
	"context"
	"time"

	"github.com/cmlabs-hris/attendance-reconciliation/internal/domain/employee"
	"github.com/dgraph-io/ristretto"
)

const DefaultEmployeeTTL = 5 * time.Minute

// EmployeeRepository caches employee lookups in front of another
// employee.EmployeeRepository. Batch reports call GetByID once per row right
// after ListActive, so ListActive primes the cache. Misses and errors are
// never cached.
type EmployeeRepository struct {
	employee.EmployeeRepository
	cache *ristretto.Cache
	ttl   time.Duration
}

func NewEmployeeRepository(next employee.EmployeeRepository, ttl time.Duration) (*EmployeeRepository, error) {
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters:            1e5,
		MaxCost:                1e4,
		BufferItems:            64,
		TtlTickerDurationInSec: 60,
	})
	if err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = DefaultEmployeeTTL
	}
	return &EmployeeRepository{EmployeeRepository: next, cache: c, ttl: ttl}, nil
}

func key(companyID, id string) string {
	return companyID + "/" + id
}

// GetByID implements employee.EmployeeRepository.
func (r *EmployeeRepository) GetByID(ctx context.Context, id string, companyID string) (employee.Employee, error) {
	if v, ok := r.cache.Get(key(companyID, id)); ok {
		if emp, ok := v.(employee.Employee); ok {
			return emp, nil
		}
	}

	emp, err := r.EmployeeRepository.GetByID(ctx, id, companyID)
	if err != nil {
		return employee.Employee{}, err
	}
	r.cache.SetWithTTL(key(companyID, id), emp, 1, r.ttl)
	return emp, nil
}

// ListActive implements employee.EmployeeRepository.
func (r *EmployeeRepository) ListActive(ctx context.Context, companyID string) ([]employee.Employee, error) {
	employees, err := r.EmployeeRepository.ListActive(ctx, companyID)
	if err != nil {
		return nil, err
	}
	for _, emp := range employees {
		r.cache.SetWithTTL(key(emp.CompanyID, emp.ID), emp, 1, r.ttl)
	}
	return employees, nil
}

// Invalidate drops one employee from the cache.
func (r *EmployeeRepository) Invalidate(companyID, id string) {
	r.cache.Del(key(companyID, id))
}

// Wait blocks until buffered writes are applied.
func (r *EmployeeRepository) Wait() {
	r.cache.Wait()
}

func (r *EmployeeRepository) Close() {
	r.cache.Close()
}
