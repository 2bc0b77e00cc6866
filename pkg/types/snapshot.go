package types

// Snapshot wire shape:
//   version: number
//   room:
//     code: string
//     status: "lobby" | "playing" | "finished" | "cancelled"
//     locked: boolean
//     current_q_index: number
//     question_ends_at: timestamp | null // null while lobby, or wait-for-all window still open
//     window_mode: "fixed" | "wait_for_all"
//   players: [{ id, name, score }] // join order
//   question: { q_index, text, options: 4 strings, correct_index } // only while playing
//   answer_count: number // answers stored for the current question
//   standings: [{ player_id, name, score, rank, is_winner }] // competition ranking
