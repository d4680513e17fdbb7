package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"campustrack/internal/apperr"
	"campustrack/internal/model"
)

// translateMongo maps driver errors to the taxonomy.
func translateMongo(err error, msg string) error {
	if err == nil {
		return nil
	}
	if mongo.IsDuplicateKeyError(err) {
		return apperr.Wrap(apperr.KindConflict, err, msg+" already exists")
	}
	return err
}

type mgUsers struct {
	c *mongo.Collection
}

func (r *mgUsers) Create(ctx context.Context, u *model.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	_, err := r.c.InsertOne(ctx, userDoc(u))
	return translateMongo(err, "user")
}

// userDoc builds the stored document; uid is omitted when empty so the
// partial unique index only applies to mapped tags.
func userDoc(u *model.User) bson.M {
	doc := bson.M{
		"_id":                  u.ID,
		"name":                 u.Name,
		"email":                u.Email,
		"password_hash":        u.PasswordHash,
		"role":                 u.Role,
		"id_number":            u.IDNumber,
		"department":           u.Department,
		"class_name":           u.ClassName,
		"is_active":            u.IsActive,
		"must_change_password": u.MustChangePassword,
		"created_at":           u.CreatedAt,
		"updated_at":           u.UpdatedAt,
	}
	if u.UID != "" {
		doc["uid"] = u.UID
	}
	return doc
}

func (r *mgUsers) findOne(ctx context.Context, filter bson.M) (*model.User, error) {
	var u model.User
	if err := r.c.FindOne(ctx, filter).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, err
	}
	return &u, nil
}

func (r *mgUsers) GetByID(ctx context.Context, id string) (*model.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *mgUsers) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *mgUsers) GetByUID(ctx context.Context, uid string) (*model.User, error) {
	return r.findOne(ctx, bson.M{"uid": uid})
}

func (r *mgUsers) List(ctx context.Context, f UserFilter) ([]model.User, error) {
	filter := bson.M{}
	if f.Role != "" {
		filter["role"] = f.Role
	}
	if f.Department != "" {
		filter["department"] = f.Department
	}
	if f.ClassName != "" {
		filter["class_name"] = f.ClassName
	}
	if f.Search != "" {
		filter["$or"] = bson.A{
			bson.M{"name": bson.M{"$regex": f.Search, "$options": "i"}},
			bson.M{"email": bson.M{"$regex": f.Search, "$options": "i"}},
		}
	}
	cur, err := r.c.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var res []model.User
	if err := cur.All(ctx, &res); err != nil {
		return nil, err
	}
	return res, nil
}

func (r *mgUsers) Update(ctx context.Context, u *model.User) error {
	u.UpdatedAt = time.Now().UTC()
	doc := userDoc(u)
	delete(doc, "_id")
	delete(doc, "created_at")
	update := bson.M{"$set": doc}
	if u.UID == "" {
		update["$unset"] = bson.M{"uid": ""}
	}
	res, err := r.c.UpdateOne(ctx, bson.M{"_id": u.ID}, update)
	if err != nil {
		return translateMongo(err, "user")
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("user not found")
	}
	return nil
}

func (r *mgUsers) Delete(ctx context.Context, id string) error {
	res, err := r.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return apperr.NotFound("user not found")
	}
	return nil
}

func (r *mgUsers) CountActiveStudents(ctx context.Context) (int, error) {
	n, err := r.c.CountDocuments(ctx, bson.M{"role": model.RoleStudent, "is_active": true})
	return int(n), err
}

func (r *mgUsers) StudentIDsByDepartment(ctx context.Context, department string) ([]string, error) {
	cur, err := r.c.Find(ctx, bson.M{"role": model.RoleStudent, "department": department},
		options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	var docs []struct {
		ID string `bson:"_id"`
	}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	return ids, nil
}

type mgLedger struct {
	c *mongo.Collection
}

// Upsert uses FindOneAndUpdate with SetUpsert so the unique compound index
// on (student_id, date, period_id) resolves concurrent marks to last write
// wins without duplicate documents.
func (r *mgLedger) Upsert(ctx context.Context, rec model.AttendanceRecord) (model.AttendanceRecord, error) {
	if rec.MarkedAt.IsZero() {
		rec.MarkedAt = time.Now().UTC()
	}
	filter := bson.M{"student_id": rec.StudentID, "date": rec.Date, "period_id": rec.PeriodID}
	update := bson.M{
		"$set": bson.M{
			"status":    rec.Status,
			"marked_at": rec.MarkedAt,
			"source":    rec.Source,
		},
		"$setOnInsert": bson.M{"_id": uuid.NewString()},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var out model.AttendanceRecord
	if err := r.c.FindOneAndUpdate(ctx, filter, update, opts).Decode(&out); err != nil {
		return model.AttendanceRecord{}, translateMongo(err, "attendance mark")
	}
	return out, nil
}

func ledgerQuery(f LedgerFilter) bson.M {
	filter := bson.M{}
	if f.StudentID != "" {
		filter["student_id"] = f.StudentID
	}
	if f.PeriodID != nil {
		filter["period_id"] = *f.PeriodID
	}
	// Exact date and range bounds AND together, same as the other backends.
	dateCond := bson.M{}
	if f.From != "" {
		dateCond["$gte"] = f.From
	}
	if f.To != "" {
		dateCond["$lte"] = f.To
	}
	switch {
	case f.Date != "" && len(dateCond) > 0:
		dateCond["$eq"] = f.Date
		filter["date"] = dateCond
	case f.Date != "":
		filter["date"] = f.Date
	case len(dateCond) > 0:
		filter["date"] = dateCond
	}
	return filter
}

func (r *mgLedger) List(ctx context.Context, f LedgerFilter) ([]model.AttendanceRecord, error) {
	cur, err := r.c.Find(ctx, ledgerQuery(f), options.Find().SetSort(bson.D{{Key: "marked_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	var res []model.AttendanceRecord
	if err := cur.All(ctx, &res); err != nil {
		return nil, err
	}
	return res, nil
}

func (r *mgLedger) CountRange(ctx context.Context, studentID, from, to string) (int, int, error) {
	base := bson.M{"student_id": studentID, "date": bson.M{"$gte": from, "$lte": to}}
	total, err := r.c.CountDocuments(ctx, base)
	if err != nil {
		return 0, 0, err
	}
	present, err := r.c.CountDocuments(ctx, bson.M{
		"student_id": studentID,
		"date":       bson.M{"$gte": from, "$lte": to},
		"status":     model.StatusPresent,
	})
	if err != nil {
		return 0, 0, err
	}
	return int(total), int(present), nil
}

func (r *mgLedger) DayStats(ctx context.Context, date string) (model.DayStat, error) {
	total, err := r.c.CountDocuments(ctx, bson.M{"date": date})
	if err != nil {
		return model.DayStat{}, err
	}
	present, err := r.c.CountDocuments(ctx, bson.M{"date": date, "status": model.StatusPresent})
	if err != nil {
		return model.DayStat{}, err
	}
	absent, err := r.c.CountDocuments(ctx, bson.M{"date": date, "status": model.StatusAbsent})
	if err != nil {
		return model.DayStat{}, err
	}
	return model.DayStat{Total: int(total), Present: int(present), Absent: int(absent)}, nil
}

type mgSchedule struct {
	c *mongo.Collection
}

func (r *mgSchedule) Create(ctx context.Context, p *model.SchedulePeriod) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	_, err := r.c.InsertOne(ctx, p)
	return translateMongo(err, "timetable slot")
}

func (r *mgSchedule) List(ctx context.Context, f ScheduleFilter) ([]model.SchedulePeriod, error) {
	filter := bson.M{}
	if f.Day >= 0 {
		filter["day_of_week"] = f.Day
	}
	if f.Department != "" {
		filter["department"] = f.Department
	}
	if f.ClassName != "" {
		filter["class_name"] = f.ClassName
	}
	if f.FacultyEmail != "" {
		filter["faculty_email"] = f.FacultyEmail
	}
	sort := bson.D{{Key: "day_of_week", Value: 1}, {Key: "start_time", Value: 1}, {Key: "period_id", Value: 1}}
	cur, err := r.c.Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return nil, err
	}
	var res []model.SchedulePeriod
	if err := cur.All(ctx, &res); err != nil {
		return nil, err
	}
	return res, nil
}

func (r *mgSchedule) Delete(ctx context.Context, id string) error {
	res, err := r.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return apperr.NotFound("timetable entry not found")
	}
	return nil
}

type mgLeaves struct {
	c *mongo.Collection
}

func (r *mgLeaves) Create(ctx context.Context, lr *model.LeaveRequest) error {
	if lr.ID == "" {
		lr.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	lr.CreatedAt, lr.UpdatedAt = now, now
	if lr.Status == "" {
		lr.Status = model.LeavePending
	}
	_, err := r.c.InsertOne(ctx, lr)
	return translateMongo(err, "leave request")
}

func (r *mgLeaves) GetByID(ctx context.Context, id string) (*model.LeaveRequest, error) {
	var lr model.LeaveRequest
	if err := r.c.FindOne(ctx, bson.M{"_id": id}).Decode(&lr); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("leave request not found")
		}
		return nil, err
	}
	return &lr, nil
}

func (r *mgLeaves) List(ctx context.Context, f LeaveFilter) ([]model.LeaveRequest, error) {
	filter := bson.M{}
	if f.StudentID != "" {
		filter["student_id"] = f.StudentID
	}
	if f.FacultyID != "" {
		filter["faculty_id"] = f.FacultyID
	}
	if f.StudentIDs != nil {
		if len(f.StudentIDs) == 0 {
			return nil, nil
		}
		filter["student_id"] = bson.M{"$in": f.StudentIDs}
	}
	cur, err := r.c.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	var res []model.LeaveRequest
	if err := cur.All(ctx, &res); err != nil {
		return nil, err
	}
	return res, nil
}

func (r *mgLeaves) Decide(ctx context.Context, id, status string) (*model.LeaveRequest, error) {
	filter := bson.M{"_id": id, "status": model.LeavePending}
	update := bson.M{"$set": bson.M{"status": status, "updated_at": time.Now().UTC()}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var lr model.LeaveRequest
	err := r.c.FindOneAndUpdate(ctx, filter, update, opts).Decode(&lr)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if _, gerr := r.GetByID(ctx, id); gerr != nil {
			return nil, gerr
		}
		return nil, apperr.Conflict("leave request already decided")
	}
	if err != nil {
		return nil, err
	}
	return &lr, nil
}

func (r *mgLeaves) CountPending(ctx context.Context) (int, error) {
	n, err := r.c.CountDocuments(ctx, bson.M{"status": model.LeavePending})
	return int(n), err
}

type mgComplaints struct {
	c *mongo.Collection
}

func (r *mgComplaints) Create(ctx context.Context, c *model.Complaint) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	if c.Status == "" {
		c.Status = model.ComplaintPending
	}
	_, err := r.c.InsertOne(ctx, c)
	return translateMongo(err, "complaint")
}

func (r *mgComplaints) List(ctx context.Context, f ComplaintFilter) ([]model.Complaint, error) {
	filter := bson.M{}
	if f.StudentID != "" {
		filter["student_id"] = f.StudentID
	}
	if f.StudentIDs != nil {
		if len(f.StudentIDs) == 0 {
			return nil, nil
		}
		filter["student_id"] = bson.M{"$in": f.StudentIDs}
	}
	cur, err := r.c.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	var res []model.Complaint
	if err := cur.All(ctx, &res); err != nil {
		return nil, err
	}
	return res, nil
}

func (r *mgComplaints) SetStatus(ctx context.Context, id, status string) (*model.Complaint, error) {
	update := bson.M{"$set": bson.M{"status": status, "updated_at": time.Now().UTC()}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var c model.Complaint
	if err := r.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&c); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("complaint not found")
		}
		return nil, err
	}
	return &c, nil
}

func (r *mgComplaints) CountPending(ctx context.Context) (int, error) {
	n, err := r.c.CountDocuments(ctx, bson.M{"status": model.ComplaintPending})
	return int(n), err
}

type mgCodes struct {
	c *mongo.Collection
}

func (r *mgCodes) Claim(ctx context.Context, code string) error {
	res, err := r.c.UpdateOne(ctx,
		bson.M{"_id": code, "is_used": false},
		bson.M{"$set": bson.M{"is_used": true}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("invalid or used activation code")
	}
	return nil
}

func (r *mgCodes) Create(ctx context.Context, code string) error {
	_, err := r.c.InsertOne(ctx, bson.M{"_id": code, "is_used": false})
	return translateMongo(err, "activation code")
}
