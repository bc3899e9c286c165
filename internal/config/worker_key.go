package config

type WorkerKeyStruct struct {
	PersistCheatsQueue        string
	PersistCheckpointsQueue   string
	PersistQuestionOrderQueue string
}

var WorkerKey = &WorkerKeyStruct{
	PersistCheatsQueue:        "persist_cheats_queue",
	PersistCheckpointsQueue:   "persist_checkpoints_queue",
	PersistQuestionOrderQueue: "persist_question_order_queue",
}
