package storage

import (
	"encoding/binary"
	"errors"
	"fmt"

	"go.vocdoni.io/dvote/db/prefixeddb"
)

func jobKey(id uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, id)
	return key
}

// PushJob persists a new computation job in the Queued state. The job id is
// caller-chosen and must be unique within the cluster scope: a live or
// already-consumed id is rejected with ErrJobExists, which is also what makes
// the commit path one-shot.
func (s *Storage) PushJob(j *ComputationJob) error {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	key := jobKey(j.ID)
	if s.hasArtifact(jobPrefix, key) || s.hasArtifact(jobConsumedPrefix, key) {
		return ErrJobExists
	}
	j.Status = JobStatusQueued
	val, err := encodeArtifact(j)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	return s.setArtifact(jobPrefix, key, val)
}

// NextJob returns the next non-reserved queued job and creates a reservation
// for it, so concurrent workers never execute the same job twice. Returns
// ErrNoMoreElements when nothing is pending.
func (s *Storage) NextJob() (*ComputationJob, error) {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	var chosenKey, chosenVal []byte
	rd := prefixeddb.NewPrefixedReader(s.db, jobPrefix)
	if err := rd.Iterate(nil, func(k, v []byte) bool {
		if s.hasArtifact(jobReservationPrefix, k) {
			return true
		}
		chosenKey = append([]byte{}, k...)
		chosenVal = append([]byte{}, v...)
		return false
	}); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	if chosenVal == nil {
		return nil, ErrNoMoreElements
	}

	var j ComputationJob
	if err := decodeArtifact(chosenVal, &j); err != nil {
		return nil, fmt.Errorf("decode job: %w", err)
	}
	if err := s.setArtifact(jobReservationPrefix, chosenKey, []byte{1}); err != nil {
		return nil, ErrNoMoreElements
	}
	return &j, nil
}

// Job loads a computation job by id, whether still queued or consumed.
func (s *Storage) Job(id uint64) (*ComputationJob, error) {
	key := jobKey(id)
	data, err := s.getArtifact(jobPrefix, key)
	if errors.Is(err, ErrNotFound) {
		data, err = s.getArtifact(jobConsumedPrefix, key)
	}
	if err != nil {
		return nil, err
	}
	j := new(ComputationJob)
	if err := decodeArtifact(data, j); err != nil {
		return nil, fmt.Errorf("decode job: %w", err)
	}
	return j, nil
}

// ConsumeJob moves a queued job to the consumed set with its terminal status
// (Verified or Rejected). A job id can be consumed at most once; a second
// attempt returns ErrNotFound since the pending entry is gone.
func (s *Storage) ConsumeJob(id uint64, status JobStatus) error {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	key := jobKey(id)
	data, err := s.getArtifact(jobPrefix, key)
	if err != nil {
		return err
	}
	var j ComputationJob
	if err := decodeArtifact(data, &j); err != nil {
		return fmt.Errorf("decode job: %w", err)
	}
	j.Status = status
	val, err := encodeArtifact(&j)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	if err := s.setArtifact(jobConsumedPrefix, key, val); err != nil {
		return err
	}
	if err := s.deleteArtifact(jobReservationPrefix, key); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("delete job reservation: %w", err)
	}
	if err := s.deleteArtifact(jobPrefix, key); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("delete pending job: %w", err)
	}
	return nil
}
